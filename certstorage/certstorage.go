/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package certstorage reads revocations out of a snapshot of Firefox's cert_storage.
//
// cert_storage keys revocations as "is" || issuer || serial or "spk" || subject || key hash,
// where the name is a DER encoded X.509 Name and the serial or hash is simply whatever is left.
// A value of 1 marks an active revocation, anything else (or no value at all) has been removed.
package certstorage

import (
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/canonical"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
	"github.com/pkg/errors"
)

type Entry struct {
	Key   []byte
	Value *int64
}

// NewEntry is a convenience for constructing an entry with a present value.
func NewEntry(key []byte, value int64) Entry {
	return Entry{Key: key, Value: &value}
}

// Revocation canonicalizes this entry. A nil revocation and a nil error are returned for
// entries that are not revocations as well as for revocations that are no longer active.
func (e Entry) Revocation(c *canonical.Canonicalizer) (*revocation.Revocation, error) {
	kind, name, tail, err := DecodeKey(e.Key)
	if errors.Is(err, ErrUnrecognizedPrefix) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.FromStoreEntry(kind, name, tail, e.Value)
}

// A Snapshot is a read only view of cert_storage. Entries may be called any number of times
// before Close.
type Snapshot interface {
	Entries() ([]Entry, error)
	Close() error
}

// Entries is an in memory Snapshot.
type Entries []Entry

func (e Entries) Entries() ([]Entry, error) {
	return e, nil
}

func (e Entries) Close() error {
	return nil
}
