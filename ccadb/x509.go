/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package ccadb

import (
	"encoding/asn1"

	ctx509 "github.com/google/certificate-transparency-go/x509"
	constraintsx509 "github.com/jcjones/constraintcrypto/x509"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Parsed is the part of a certificate that identifies it for revocation.
type Parsed struct {
	RawIssuer []byte
	// Serial is the content of the serialNumber INTEGER, exactly as encoded.
	Serial []byte
}

type tbsCertWithRawSerial struct {
	Raw          asn1.RawContent
	Version      asn1.RawValue `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber asn1.RawValue
}

// RawSerialBytes extracts the raw bytes of the serial number field from a tbsCertificate.
func RawSerialBytes(rawTBSCertificate []byte) ([]byte, error) {
	var tbsCert tbsCertWithRawSerial
	_, err := asn1.Unmarshal(rawTBSCertificate, &tbsCert)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract serial number")
	}
	return tbsCert.SerialNumber.Bytes, nil
}

// ParseCertificate parses the given DER with the certificate-transparency-go parser, which
// tolerates many of the mistakes found in older CA certificates. Should that fail entirely,
// the constraintcrypto parser is given a chance.
func ParseCertificate(der []byte) (*Parsed, error) {
	cert, err := ctx509.ParseCertificate(der)
	if err != nil && ctx509.IsFatal(err) {
		fallback, fallbackErr := constraintsx509.ParseCertificate(der)
		if fallbackErr != nil {
			return nil, errors.Wrap(err, "failed to parse certificate")
		}
		log.WithError(err).Debug("recovered certificate with the constraintcrypto parser")
		return parsed(fallback.RawTBSCertificate, fallback.RawIssuer)
	}
	if err != nil {
		log.WithError(err).Debug("non-fatal errors while parsing certificate")
	}
	return parsed(cert.RawTBSCertificate, cert.RawIssuer)
}

func parsed(rawTBSCertificate, rawIssuer []byte) (*Parsed, error) {
	serial, err := RawSerialBytes(rawTBSCertificate)
	if err != nil {
		return nil, err
	}
	return &Parsed{RawIssuer: rawIssuer, Serial: serial}, nil
}
