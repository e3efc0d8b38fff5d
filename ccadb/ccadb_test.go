/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package ccadb

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/canonical"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
	"github.com/pkg/errors"
)

const example = `"CA Owner","Revocation Status","RFC 5280 Revocation Reason Code","Date of Revocation","OneCRL Status","OneCRL Bug Number","Certificate Serial Number","CA Owner/Certificate Name","Certificate Issuer Common Name","Certificate Issuer Organization","Certificate Subject Common Name","Certificate Subject Organization","SHA-256 Fingerprint","Subject + SPKI SHA256","Valid From [GMT]","Valid To [GMT]","Public Key Algorithm","Signature Hash Algorithm","CRL URL(s)","Alternate CRL","Comments","PEM Info"
"SECOM Trust Systems CO., LTD.","Revoked","","2020 Jun 09","Ready to Add","","22B9B0D6","NII Open Domain Code Signing CA - G2","","SECOM Trust Systems CO.,LTD.","NII Open Domain Code Signing CA - G2","National Institute of Informatics","7F9D66A7964E27654B7677464C24A786548C9774504C15C38449B4419FF38B5F","9235DB3B5C9377AF4AE4F4FF86DABBD10C9BC7A0C52720E0D0646306436D20B1","2015 Feb 26","2025 Feb 26","RSA 2048 bits","SHA256WithRSA","http://repository.secomtrust.net/SC-Root2/SCRoot2CRL.crl","","","'-----BEGIN CERTIFICATE-----
MIIEoDCCA4igAwIBAgIEIrmw1jANBgkqhkiG9w0BAQsFADBdMQswCQYDVQQGEwJK
UDElMCMGA1UEChMcU0VDT00gVHJ1c3QgU3lzdGVtcyBDTy4sTFRELjEnMCUGA1UE
CxMeU2VjdXJpdHkgQ29tbXVuaWNhdGlvbiBSb290Q0EyMB4XDTE1MDIyNjA2Mjk1
MloXDTI1MDIyNjA2Mjk1MlowejELMAkGA1UEBhMCSlAxEDAOBgNVBAcTB0FjYWRl
bWUxKjAoBgNVBAoTIU5hdGlvbmFsIEluc3RpdHV0ZSBvZiBJbmZvcm1hdGljczEt
MCsGA1UEAxMkTklJIE9wZW4gRG9tYWluIENvZGUgU2lnbmluZyBDQSAtIEcyMIIB
IjANBgkqhkiG9w0BAQEFAAOCAQ8AMIIBCgKCAQEAkx32+IsEfNQfVcAkSykGar/y
YdGyu/qmcZ8UpoNdl57H1mrWRkv8Kt5r7fK890yy8v2x/2qsCRNO+D0NZKp3Vkoq
QbHcqG5/THAs78/VOkLylrd6jZzaVOKIAn9VYShALIql8YNnMYVOHni3cCQZsbH/
b8G7UDiC+Wu8xFBULb6Oh9lJ1OCRubCMX/sznr8A98XD4aoYZCP1NYO5tSV/oh3I
5nEBAjNgNWcI+dJtR9vC6rXpekr0E/x1+1x0DFXraOEhmYVuWjOSAS8bkWCJB10O
hR74a2lE3nywF99vcSde4JMj5ZD/w6IJ8ubpsc90ENJ6hmlwiSKiVQYE8TDAUwID
AQABo4IBSTCCAUUwHQYDVR0OBBYEFFTXON4auUnL/7soY+cnH6teKiRHMB8GA1Ud
IwQYMBaAFAqFqXdlBZh8QIH4D5csOPEK7DzPMBIGA1UdEwEB/wQIMAYBAf8CAQAw
DgYDVR0PAQH/BAQDAgEGMEkGA1UdHwRCMEAwPqA8oDqGOGh0dHA6Ly9yZXBvc2l0
b3J5LnNlY29tdHJ1c3QubmV0L1NDLVJvb3QyL1NDUm9vdDJDUkwuY3JsMFIGA1Ud
IARLMEkwRwYKKoMIjJsbZIcFBDA5MDcGCCsGAQUFBwIBFitodHRwczovL3JlcG9z
aXRvcnkuc2Vjb210cnVzdC5uZXQvU0MtUm9vdDIvMEAGCCsGAQUFBwEBBDQwMjAw
BggrBgEFBQcwAYYkaHR0cDovL3Njcm9vdGNhMi5vY3NwLnNlY29tdHJ1c3QubmV0
MA0GCSqGSIb3DQEBCwUAA4IBAQATlI35Ka0BZxtd/5CoLLs94ucZ0NrUPDS3zRMJ
lBEbEKr2+aU49jp8Yq0TRyvbgQ/eowDoeHtZVeJEhu7gAMriVCvTyIyuH+Y78CyA
JmffM5ePGIyENhSFTcUdRsrlwo+1CkYaZaQw9/36BexYWGthyGFIvoG0osS92feW
2r6Sett9cH0AKQ/8ChAWDkQtu5YdR3iGIU3U9woM6B6mkHw7uw7QjwTU//yG5tiy
6VY1TzqplPQ62dp1jFtN9KTRkJXr8FVvmRYirY316uvm6I6L/eSvgJZeusEQqqr4
QN793ae1wTx52mqE+Rnm1T/mXdNxEilUZ8DCZm5a1brzypBU
-----END CERTIFICATE-----'"`

const secomFingerprint = "7F9D66A7964E27654B7677464C24A786548C9774504C15C38449B4419FF38B5F"

var secom = revocation.NewIssuerSerial(
	"C=JP,O=SECOM Trust Systems CO.,LTD.,OU=Security Communication RootCA2",
	"22:B9:B0:D6",
	secomFingerprint)

func parseExample(t *testing.T) *Certificate {
	t.Helper()
	certs, err := FromReader(strings.NewReader(example))
	if err != nil {
		t.Fatal(err)
	}
	if len(certs) != 1 {
		t.Fatalf("unexpected number of parsed entried. Wanted 1, got %d", len(certs))
	}
	return certs[0]
}

func TestSmoke(t *testing.T) {
	cert := parseExample(t)
	if cert.Status() != ReadyToAdd {
		t.Errorf("expected %s, got %s", ReadyToAdd, cert.Status())
	}
	if cert.Fingerprint != secomFingerprint {
		t.Errorf("unexpected fingerprint %s", cert.Fingerprint)
	}
	if !strings.HasPrefix(cert.PEM(), "-----BEGIN CERTIFICATE-----") {
		t.Errorf("expected the quotes to be trimmed from the PEM, got %s", cert.PEM()[:30])
	}
}

func TestCertificate_Revocation(t *testing.T) {
	cert := parseExample(t)
	r, err := cert.Revocation(canonical.New(nil))
	if err != nil {
		t.Fatal(err)
	}
	if r != secom {
		t.Errorf("want %v, got %v", secom, r)
	}
}

func TestCertificate_RevocationMatchesRawIssuer(t *testing.T) {
	cert := parseExample(t)
	der, err := cert.DER()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	name, err := canonical.RDNToString(canonical.B64Encode(parsed.RawIssuer))
	if err != nil {
		t.Fatal(err)
	}
	if name != secom.Name {
		t.Errorf("want %s, got %s", secom.Name, name)
	}
}

func TestCertificate_RevocationOverlay(t *testing.T) {
	overlay, err := canonical.NewOverlay([]canonical.OverlayEntry{{
		Fingerprint: "AABB",
		Issuer:      "CN=Hardcoded",
		Serial:      "01",
	}})
	if err != nil {
		t.Fatal(err)
	}
	cert := &Certificate{Fingerprint: "AABB", PemInfo: "'-----BEGIN CERTIFICATE-----garbage'"}
	r, err := cert.Revocation(canonical.New(overlay))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Equal(revocation.NewIssuerSerial("CN=Hardcoded", "01", "")) {
		t.Errorf("unexpected revocation %v", r)
	}
	if r.Fingerprint != "AABB" {
		t.Errorf("expected the overlay fingerprint to be carried, got %s", r.Fingerprint)
	}
}

func TestCertificate_RevocationErrors(t *testing.T) {
	tests := map[string]*Certificate{
		"empty":   {Fingerprint: "01"},
		"not pem": {Fingerprint: "02", PemInfo: "'not a certificate'"},
		"not der": {Fingerprint: "03", PemInfo: "-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----"},
	}
	for name, cert := range tests {
		_, err := cert.Revocation(canonical.New(nil))
		var parseErr *canonical.CertificateParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("%s: expected a CertificateParseError, got %v", name, err)
			continue
		}
		if parseErr.Fingerprint != cert.Fingerprint {
			t.Errorf("%s: expected fingerprint %s, got %s", name, cert.Fingerprint, parseErr.Fingerprint)
		}
	}
}

func TestRawSerialBytes(t *testing.T) {
	// DER for the version and serialNumber fields of a tbsCertificate.
	tbsCertPrefix := []byte{
		0x30, 0x0f,
		0xa0, 0x03, 0x02, 0x01, 0x02,
		0x02, 0x08, 0x00, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa,
	}
	b, err := RawSerialBytes(tbsCertPrefix)
	if err != nil {
		t.Fatal(err)
	}
	if canonical.Hex(b) != "00:AA:AA:AA:AA:AA:AA:AA" {
		t.Errorf("leading zero octets must be kept, got %s", canonical.Hex(b))
	}
}

func TestParseOneCRLStatus(t *testing.T) {
	tests := []struct {
		in    string
		want  OneCRLStatus
		known bool
	}{
		{"", Empty, true},
		{"Ready to Add", ReadyToAdd, true},
		{"Added to OneCRL", Added, true},
		{"Cert Expired", Expired, true},
		{"Pending Review", OneCRLStatus("Pending Review"), false},
	}
	for _, test := range tests {
		got := ParseOneCRLStatus(test.in)
		if got != test.want || got.Known() != test.known {
			t.Errorf("%q: want %s (known %v), got %s (known %v)", test.in, test.want, test.known, got, got.Known())
		}
	}
	if got := ParseOneCRLStatus("Pending Review").String(); got != "Unknown(Pending Review)" {
		t.Errorf("unexpected String %s", got)
	}
}

func TestFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, example)
	}))
	defer server.Close()
	certs, err := FromURL(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if len(certs) != 1 {
		t.Fatalf("expected 1 certificate, got %d", len(certs))
	}
}
