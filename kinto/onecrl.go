/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package kinto

import (
	"encoding/json"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/canonical"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto/api"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto/api/buckets"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto/api/collections"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
	"github.com/pkg/errors"
)

const (
	DefaultBucket     = "security-state"
	DefaultCollection = "onecrl"
)

func NewOneCRL() *OneCRL {
	return NewOneCRLAt(DefaultBucket, DefaultCollection)
}

// NewOneCRLAt addresses a OneCRL collection living somewhere other than the
// default (E.G. "security-state-staging").
func NewOneCRLAt(bucket, collection string) *OneCRL {
	if bucket == "" {
		bucket = DefaultBucket
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &OneCRL{
		Collection: collections.NewCollection(buckets.NewBucket(bucket), collection),
		Data:       []*Entry{},
	}
}

type OneCRL struct {
	*collections.Collection `json:"-"`
	Data                    []*Entry `json:"data"`
}

// Shape is the variant of a OneCRL entry, decided once when it is decoded.
type Shape int

const (
	Unrecognized Shape = iota
	IssuerSerial
	SubjectKeyHash
)

func (s Shape) String() string {
	switch s {
	case IssuerSerial:
		return "IssuerSerial"
	case SubjectKeyHash:
		return "SubjectKeyHash"
	}
	return "Unrecognized"
}

type Entry struct {
	Shape        Shape   `json:"-"`
	Schema       int     `json:"schema"`
	Details      Details `json:"details"`
	Enabled      bool    `json:"enabled"`
	IssuerName   string  `json:"issuerName,omitempty"`
	SerialNumber string  `json:"serialNumber,omitempty"`
	Subject      string  `json:"subject,omitempty"`
	PubKeyHash   string  `json:"pubKeyHash,omitempty"`
	*api.Record
}

type Details struct {
	Bug     string `json:"bug"`
	Who     string `json:"who"`
	Why     string `json:"why"`
	Name    string `json:"name"`
	Created string `json:"created"`
}

// UnmarshalJSON decodes an entry and classifies it as either issuer/serial
// or subject/key hash based on which of the fields are present. Entries having
// neither pair are kept, but marked Unrecognized.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Entry(p)
	switch {
	case e.IssuerName != "" && e.SerialNumber != "":
		e.Shape = IssuerSerial
	case e.Subject != "" && e.PubKeyHash != "":
		e.Shape = SubjectKeyHash
	default:
		e.Shape = Unrecognized
	}
	return nil
}

// Revocation canonicalizes this entry.
func (e *Entry) Revocation(c *canonical.Canonicalizer) (revocation.Revocation, error) {
	switch e.Shape {
	case IssuerSerial:
		return c.FromEncoded(revocation.IssuerSerial, e.IssuerName, e.SerialNumber)
	case SubjectKeyHash:
		return c.FromEncoded(revocation.SubjectKeyHash, e.Subject, e.PubKeyHash)
	case Unrecognized:
		return revocation.Revocation{}, errors.Errorf("OneCRL entry %s is neither issuer/serial nor subject/pubKeyHash", e.ID())
	}
	return revocation.Revocation{}, errors.Errorf("OneCRL entry %s has unknown shape %d", e.ID(), int(e.Shape))
}
