/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package ccadb

import (
	"encoding/pem"
	"io"
	"net/http"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/canonical"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
	"github.com/pkg/errors"
)

const source = "https://ccadb-public.secure.force.com/mozilla/PublicIntermediateCertsRevokedWithPEMCSV"

type CCADB = []*Certificate

type Certificate struct {
	CAOwner                        string `csv:"CA Owner"`
	RevocationStatus               string `csv:"Revocation Status"`
	ReasonCode                     string `csv:"RFC 5280 Revocation Reason Code"`
	DateOfRevocation               string `csv:"Date of Revocation"`
	OneCRLStatus                   string `csv:"OneCRL Status"`
	OneCRLBugNumber                string `csv:"OneCRL Bug Number"`
	CertificateSerialNumber        string `csv:"Certificate Serial Number"`
	CaOwnerName                    string `csv:"CA Owner/Certificate Name"`
	CertificateIssuerName          string `csv:"Certificate Issuer Common Name"`
	CertificateIssuerOrganization  string `csv:"Certificate Issuer Organization"`
	CertificateSubjectCommonName   string `csv:"Certificate Subject Common Name"`
	CertificateSubjectOrganization string `csv:"Certificate Subject Organization"`
	Fingerprint                    string `csv:"SHA-256 Fingerprint"`
	SubjectSPKIHash                string `csv:"Subject + SPKI SHA256"`
	NotBefore                      string `csv:"Valid From [GMT]"`
	NotAfter                       string `csv:"Valid To [GMT]"`
	KeyAlgorithm                   string `csv:"Public Key Algorithm"`
	SignatureAlgorithm             string `csv:"Signature Hash Algorithm"`
	CRLs                           string `csv:"CRL URL(s)"`
	AlternativeCRL                 string `csv:"Alternate CRL"`
	Comments                       string `csv:"Comments"`
	PemInfo                        string `csv:"PEM Info"`
}

func Default() (CCADB, error) {
	return FromURL(source)
}

func FromURL(url string) (CCADB, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("failed to download %s, got status %d", url, resp.StatusCode)
	}
	return FromReader(resp.Body)
}

func FromReader(reader io.Reader) (CCADB, error) {
	report := make([]*Certificate, 0)
	if err := gocsv.Unmarshal(reader, &report); err != nil {
		return nil, errors.Wrap(err, "failed to parse the CCADB report")
	}
	return report, nil
}

// Status parses the OneCRL Status column.
func (c *Certificate) Status() OneCRLStatus {
	return ParseOneCRLStatus(c.OneCRLStatus)
}

// PEM returns a parseable PEM string from the PemInfo field.
// If you want to do something with the certificate then you should use
// this method rather than accessing the raw PemInfo field as the CCADB has
// as the habit of double encoding strings with inner single quotes.
func (c *Certificate) PEM() string {
	return strings.TrimSpace(strings.Trim(c.PemInfo, "'"))
}

// DER returns the DER bytes of the certificate held in the PEM Info column.
func (c *Certificate) DER() ([]byte, error) {
	p := c.PEM()
	if p == "" {
		return nil, errors.New("CCADB record has an empty certificate field")
	}
	b, _ := pem.Decode([]byte(p))
	if b == nil {
		return nil, errors.Errorf("fail to decode pem from CCADB: '%s'", c.PemInfo)
	}
	return b.Bytes, nil
}

// Revocation returns the issuer/serial revocation identifying this certificate.
//
// Certificates listed in the canonicalizer's overlay are never parsed. Otherwise the certificate is
// parsed and its issuer handed to the canonicalizer, with any failure reported as a
// *canonical.CertificateParseError.
func (c *Certificate) Revocation(canon *canonical.Canonicalizer) (revocation.Revocation, error) {
	if r, ok := canon.Overlaid(c.Fingerprint); ok {
		return r, nil
	}
	der, err := c.DER()
	if err != nil {
		return revocation.Revocation{}, &canonical.CertificateParseError{Fingerprint: c.Fingerprint, Err: err}
	}
	parsed, err := ParseCertificate(der)
	if err != nil {
		return revocation.Revocation{}, &canonical.CertificateParseError{Fingerprint: c.Fingerprint, Err: err}
	}
	issuer, err := canonical.ParseName(parsed.RawIssuer)
	if err != nil {
		return revocation.Revocation{}, &canonical.CertificateParseError{Fingerprint: c.Fingerprint, Err: err}
	}
	return canon.FromCertificate(issuer, parsed.Serial, c.Fingerprint)
}
