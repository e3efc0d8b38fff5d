/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package revocation holds the canonical identity of a revoked certificate as it is
// compared across Kinto, the CCADB, revocations.txt, and cert_storage.
package revocation

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	IssuerSerial Kind = iota
	SubjectKeyHash
)

func (k Kind) String() string {
	switch k {
	case IssuerSerial:
		return "IssuerSerial"
	case SubjectKeyHash:
		return "SubjectKeyHash"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Revocation is either an issuer/serial pair or a subject/key-hash pair.
//
// Name is a canonical name ("K=V,K=V") and Data is canonical hex ("0A:1B:..."). Which of
// issuer/subject and serial/key-hash they denote depends on Kind.
//
// Fingerprint is carried along for reporting only. It never takes part in equality, use
// Key when comparing or indexing revocations.
type Revocation struct {
	Kind        Kind
	Name        string
	Data        string
	Fingerprint string
}

// Key is the identity of a Revocation.
type Key struct {
	Kind Kind
	Name string
	Data string
}

func NewIssuerSerial(issuer, serial, fingerprint string) Revocation {
	return Revocation{Kind: IssuerSerial, Name: issuer, Data: serial, Fingerprint: fingerprint}
}

func NewSubjectKeyHash(subject, keyHash, fingerprint string) Revocation {
	return Revocation{Kind: SubjectKeyHash, Name: subject, Data: keyHash, Fingerprint: fingerprint}
}

func (r Revocation) Key() Key {
	return Key{Kind: r.Kind, Name: r.Name, Data: r.Data}
}

// Equal reports whether the two revocations denote the same certificate.
func (r Revocation) Equal(other Revocation) bool {
	return r.Key() == other.Key()
}

// WithFingerprint returns a copy of r carrying the given fingerprint.
func (r Revocation) WithFingerprint(fingerprint string) Revocation {
	r.Fingerprint = fingerprint
	return r
}

func (r Revocation) String() string {
	switch r.Kind {
	case IssuerSerial:
		return fmt.Sprintf("issuer=%q serial=%s", r.Name, r.Data)
	case SubjectKeyHash:
		return fmt.Sprintf("subject=%q key_hash=%s", r.Name, r.Data)
	}
	return fmt.Sprintf("%s name=%q data=%s", r.Kind, r.Name, r.Data)
}

type issuerSerialJSON struct {
	Issuer      string `json:"issuer"`
	Serial      string `json:"serial"`
	Fingerprint string `json:"sha_256,omitempty"`
}

type subjectKeyHashJSON struct {
	Subject     string `json:"subject"`
	KeyHash     string `json:"key_hash"`
	Fingerprint string `json:"sha_256,omitempty"`
}

func (r Revocation) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case IssuerSerial:
		return json.Marshal(issuerSerialJSON{Issuer: r.Name, Serial: r.Data, Fingerprint: r.Fingerprint})
	case SubjectKeyHash:
		return json.Marshal(subjectKeyHashJSON{Subject: r.Name, KeyHash: r.Data, Fingerprint: r.Fingerprint})
	}
	return nil, errors.Errorf("cannot serialize revocation of unknown kind %d", int(r.Kind))
}

func (r *Revocation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Issuer      *string `json:"issuer"`
		Serial      *string `json:"serial"`
		Subject     *string `json:"subject"`
		KeyHash     *string `json:"key_hash"`
		Fingerprint string  `json:"sha_256"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Issuer != nil && raw.Serial != nil:
		*r = NewIssuerSerial(*raw.Issuer, *raw.Serial, raw.Fingerprint)
	case raw.Subject != nil && raw.KeyHash != nil:
		*r = NewSubjectKeyHash(*raw.Subject, *raw.KeyHash, raw.Fingerprint)
	default:
		return errors.Errorf("revocation is neither issuer/serial nor subject/key_hash: %s", string(data))
	}
	return nil
}
