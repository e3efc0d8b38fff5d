/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

// Every Record in Kinto has attached to it an ID and last-modified data.
// The best way to use this struct is to embed a pointer to it within
// your own schema, which keeps the Kinto metadata out of your code while
// still receiving it in full from Kinto.
//
// For more details see https://docs.kinto-storage.org/en/stable/api/1.x/records.html
type Record struct {
	Id           string `json:"id,omitempty"`
	LastModified uint64 `json:"last_modified,omitempty"`
}

func (r *Record) ID() string {
	if r == nil {
		return ""
	}
	return r.Id
}
