/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package canonical converts the many encodings of a revoked certificate's identity
// (raw DER, base64 DER, parsed certificates) into one comparable revocation.Revocation.
package canonical

import (
	"fmt"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
	"github.com/pkg/errors"
)

// Active is the cert_storage value marking a revocation that is in force.
const Active int64 = 1

// CertificateParseError is returned when a certificate, or the issuer
// name within it, cannot be turned into a revocation.
type CertificateParseError struct {
	Fingerprint string
	Err         error
}

func (e *CertificateParseError) Error() string {
	return fmt.Sprintf("certificate %s: %v", e.Fingerprint, e.Err)
}

func (e *CertificateParseError) Unwrap() error {
	return e.Err
}

// Canonicalizer builds canonical revocations. It is safe for concurrent use.
type Canonicalizer struct {
	overlay *Overlay
}

// New returns a Canonicalizer consulting the given overlay. A nil overlay is treated as empty.
func New(overlay *Overlay) *Canonicalizer {
	if overlay == nil {
		overlay = EmptyOverlay()
	}
	return &Canonicalizer{overlay: overlay}
}

// FromStoreEntry canonicalizes a decoded cert_storage entry. A nil revocation
// (and a nil error) is returned for entries that are not active.
func (c *Canonicalizer) FromStoreEntry(kind revocation.Kind, name, tail []byte, value *int64) (*revocation.Revocation, error) {
	if value == nil || *value != Active {
		return nil, nil
	}
	canonicalName, err := RDNToString(B64Encode(name))
	if err != nil {
		return nil, err
	}
	r, err := build(kind, canonicalName, Hex(tail), "")
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FromEncoded canonicalizes a base64 DER name plus a base64 or hex serial/key hash, which is
// how both Kinto and revocations.txt carry their revocations.
func (c *Canonicalizer) FromEncoded(kind revocation.Kind, name, data string) (revocation.Revocation, error) {
	canonicalName, err := RDNToString(name)
	if err != nil {
		return revocation.Revocation{}, errors.Wrap(err, "bad name")
	}
	canonicalData, err := CanonicalData(data)
	if err != nil {
		return revocation.Revocation{}, errors.Wrap(err, "bad serial number or key hash")
	}
	return build(kind, canonicalName, canonicalData, "")
}

// FromCertificate canonicalizes the issuer and serial number of a certificate.
//
// The issuer is re-encoded and then run through the same path as names read out of
// cert_storage, so that the two converge regardless of how the certificate spelled its name.
func (c *Canonicalizer) FromCertificate(issuer []Attribute, serial []byte, fingerprint string) (revocation.Revocation, error) {
	der, err := EncodeName(issuer)
	if err != nil {
		return revocation.Revocation{}, &CertificateParseError{Fingerprint: fingerprint, Err: err}
	}
	name, err := RDNToString(B64Encode(der))
	if err != nil {
		return revocation.Revocation{}, &CertificateParseError{Fingerprint: fingerprint, Err: err}
	}
	return revocation.NewIssuerSerial(name, Hex(serial), fingerprint), nil
}

// Overlaid returns the hardcoded revocation for the given fingerprint, if there is one.
func (c *Canonicalizer) Overlaid(fingerprint string) (revocation.Revocation, bool) {
	return c.overlay.Lookup(fingerprint)
}

func build(kind revocation.Kind, name, data, fingerprint string) (revocation.Revocation, error) {
	switch kind {
	case revocation.IssuerSerial:
		return revocation.NewIssuerSerial(name, data, fingerprint), nil
	case revocation.SubjectKeyHash:
		return revocation.NewSubjectKeyHash(name, data, fingerprint), nil
	}
	return revocation.Revocation{}, errors.Errorf("unknown revocation kind %s", kind)
}
