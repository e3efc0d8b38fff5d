/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package ccadb

// OneCRLStatus is the lifecycle of a CCADB revocation with respect to OneCRL.
type OneCRLStatus string

const (
	Empty      OneCRLStatus = ""
	ReadyToAdd OneCRLStatus = "Ready to Add"
	Added      OneCRLStatus = "Added to OneCRL"
	Expired    OneCRLStatus = "Cert Expired"
)

// Statuses lists every known status.
var Statuses = []OneCRLStatus{Empty, ReadyToAdd, Added, Expired}

// ParseOneCRLStatus never fails. Strings that are not a known status are
// kept as is and may be detected with Known.
func ParseOneCRLStatus(s string) OneCRLStatus {
	return OneCRLStatus(s)
}

func (s OneCRLStatus) Known() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OneCRLStatus) String() string {
	if s == Empty {
		return "Empty"
	}
	if !s.Known() {
		return "Unknown(" + string(s) + ")"
	}
	return string(s)
}
