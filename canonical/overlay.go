/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package canonical

import (
	"io/ioutil"
	"strings"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Overlay maps SHA-256 certificate fingerprints to hardcoded revocations. It exists for the handful
// of CCADB certificates that no available parser can read.
//
// An Overlay is never modified after construction and may be shared freely.
type Overlay struct {
	entries map[string]revocation.Revocation
}

// OverlayEntry is the YAML form of a single overlay entry. Names and data must already be canonical.
type OverlayEntry struct {
	Fingerprint string `yaml:"fingerprint"`
	Issuer      string `yaml:"issuer,omitempty"`
	Serial      string `yaml:"serial,omitempty"`
	Subject     string `yaml:"subject,omitempty"`
	KeyHash     string `yaml:"key_hash,omitempty"`
}

// NewOverlay constructs an Overlay from the given entries. Fingerprints are matched
// case insensitively and without colons.
func NewOverlay(entries []OverlayEntry) (*Overlay, error) {
	o := &Overlay{entries: make(map[string]revocation.Revocation, len(entries))}
	for _, e := range entries {
		fingerprint := normalizeFingerprint(e.Fingerprint)
		if fingerprint == "" {
			return nil, errors.New("overlay entry has no fingerprint")
		}
		if _, ok := o.entries[fingerprint]; ok {
			return nil, errors.Errorf("duplicate overlay entry for %s", e.Fingerprint)
		}
		switch {
		case e.Issuer != "" && e.Serial != "":
			o.entries[fingerprint] = revocation.NewIssuerSerial(e.Issuer, e.Serial, e.Fingerprint)
		case e.Subject != "" && e.KeyHash != "":
			o.entries[fingerprint] = revocation.NewSubjectKeyHash(e.Subject, e.KeyHash, e.Fingerprint)
		default:
			return nil, errors.Errorf("overlay entry for %s must have either issuer/serial or subject/key_hash", e.Fingerprint)
		}
	}
	return o, nil
}

// EmptyOverlay returns an Overlay with no entries.
func EmptyOverlay() *Overlay {
	return &Overlay{entries: map[string]revocation.Revocation{}}
}

// LoadOverlay reads a YAML list of OverlayEntry from the given file.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read overlay %s", path)
	}
	var entries []OverlayEntry
	if err := yaml.UnmarshalStrict(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "failed to parse overlay %s", path)
	}
	return NewOverlay(entries)
}

func (o *Overlay) Lookup(fingerprint string) (revocation.Revocation, bool) {
	if o == nil {
		return revocation.Revocation{}, false
	}
	r, ok := o.entries[normalizeFingerprint(fingerprint)]
	return r, ok
}

func (o *Overlay) Len() int {
	if o == nil {
		return 0
	}
	return len(o.entries)
}

func normalizeFingerprint(fingerprint string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(fingerprint), ":", ""))
}
