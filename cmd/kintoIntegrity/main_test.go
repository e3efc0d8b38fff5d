/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/canonical"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/certstorage"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/config"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/reconcile"
	"github.com/pkg/errors"
)

// C=JP, O=SECOM Trust Systems CO.,LTD., OU=Security Communication RootCA2
const secomIssuer = "MF0xCzAJBgNVBAYTAkpQMSUwIwYDVQQKExxTRUNPTSBUcnVzdCBTeXN0ZW1zIENPLixMVEQuMScwJQYDVQQLEx5TZWN1cml0eSBDb21tdW5pY2F0aW9uIFJvb3RDQTI="

// C=ES, O=IZENPE S.A., CN=Izenpe.com
const izenpe = "MDgxCzAJBgNVBAYTAkVTMRQwEgYDVQQKDAtJWkVOUEUgUy5BLjETMBEGA1UEAwwKSXplbnBlLmNvbQ=="

const secomFingerprint = "7F9D66A7964E27654B7677464C24A786548C9774504C15C38449B4419FF38B5F"

var records = fmt.Sprintf(`{"data": [
	{"schema": 1, "enabled": true, "id": "a", "last_modified": 1, "issuerName": "%s", "serialNumber": "Irmw1g=="},
	{"schema": 1, "enabled": true, "id": "b", "last_modified": 2, "issuerName": "%s", "serialNumber": "AKof"}
]}`, secomIssuer, izenpe)

type fixture struct {
	config *config.Config
	close  func()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	issuer, err := canonical.B64Decode(secomIssuer)
	if err != nil {
		t.Fatal(err)
	}
	snapshot := filepath.Join(dir, "cert_storage.sqlite")
	err = certstorage.WriteSQLite(snapshot, []certstorage.Entry{
		certstorage.NewEntry(append(append([]byte("is"), issuer...), 0x22, 0xB9, 0xB0, 0xD6), 1),
		certstorage.NewEntry([]byte("crlite-enrollment"), 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	revocationsTxt := filepath.Join(dir, "revocations.txt")
	if err := ioutil.WriteFile(revocationsTxt, []byte(secomIssuer+"\n Irmw1g==\n"), 0644); err != nil {
		t.Fatal(err)
	}
	pem, err := ioutil.ReadFile(filepath.Join("testdata", "secom.pem"))
	if err != nil {
		t.Fatal(err)
	}
	report := &bytes.Buffer{}
	w := csv.NewWriter(report)
	_ = w.Write([]string{"SHA-256 Fingerprint", "OneCRL Status", "PEM Info"})
	_ = w.Write([]string{secomFingerprint, "Cert Expired", "'" + string(pem) + "'"})
	w.Flush()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/buckets/security-state/collections/onecrl/records", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, records)
	})
	mux.HandleFunc("/ccadb.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Write(report.Bytes())
	})
	server := httptest.NewServer(mux)
	return &fixture{
		config: &config.Config{
			Kinto:           server.URL + "/v1",
			KintoBucket:     "security-state",
			KintoCollection: "onecrl",
			CCADB:           server.URL + "/ccadb.csv",
			RevocationsTxt:  revocationsTxt,
			CertStorage:     snapshot,
			Workers:         2,
		},
		close: server.Close,
	}
}

func run(t *testing.T, c *config.Config, mode Mode) map[string][]map[string]string {
	t.Helper()
	out := &bytes.Buffer{}
	if err := _main(context.Background(), c, mode, out); err != nil {
		t.Fatal(err)
	}
	report := make(map[string][]map[string]string)
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	return report
}

func TestMain_Full(t *testing.T) {
	f := newFixture(t)
	defer f.close()
	report := run(t, f.config, Full)
	if len(report) != 6 {
		t.Errorf("expected six differences, got %v", report)
	}
	missing := report["in_kinto_not_in_cert_storage"]
	if len(missing) != 1 || missing[0]["issuer"] != "C=ES,O=IZENPE S.A.,CN=Izenpe.com" || missing[0]["serial"] != "00:AA:1F" {
		t.Errorf("expected Izenpe to be missing from cert_storage, got %v", missing)
	}
	if len(report["in_cert_storage_not_in_kinto"]) != 0 {
		t.Errorf("unexpected %v", report["in_cert_storage_not_in_kinto"])
	}
	if len(report["in_cert_storage_not_in_revocations"]) != 0 || len(report["in_revocations_not_in_cert_storage"]) != 0 {
		t.Error("cert_storage and revocations.txt should agree")
	}
	if len(report["in_kinto_not_in_revocations"]) != 1 {
		t.Errorf("unexpected %v", report["in_kinto_not_in_revocations"])
	}
}

func TestMain_CCADBStatus(t *testing.T) {
	f := newFixture(t)
	defer f.close()
	report := run(t, f.config, CCADBStatus)
	expired := report["expired_and_present_in_cert_storage"]
	if len(expired) != 1 {
		t.Fatalf("expected SECOM to be expired and present, got %v", report)
	}
	if expired[0]["sha_256"] != secomFingerprint {
		t.Errorf("expected the fingerprint to be carried over, got %v", expired[0])
	}
	for field, diff := range report {
		if field != "expired_and_present_in_cert_storage" && len(diff) != 0 {
			t.Errorf("%s: expected nothing, got %v", field, diff)
		}
	}
}

func TestMain_Revocations(t *testing.T) {
	f := newFixture(t)
	defer f.close()
	out := &bytes.Buffer{}
	if err := _main(context.Background(), f.config, Revocations, out); err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf("%s\n Irmw1g==\n%s\n AKof\n", secomIssuer, izenpe)
	if out.String() != want {
		t.Errorf("want\n%s\ngot\n%s", want, out)
	}
}

func TestMain_MissingSource(t *testing.T) {
	f := newFixture(t)
	defer f.close()
	f.config.CertStorage = filepath.Join(t.TempDir(), "nothing", "here.sqlite")
	err := _main(context.Background(), f.config, WithoutRevocations, &bytes.Buffer{})
	var fetchErr *reconcile.SourceFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected a SourceFetchError, got %v", err)
	}
	if fetchErr.Source != reconcile.CertStorageSource {
		t.Errorf("unexpected source %s", fetchErr.Source)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range modes {
		got, err := parseMode(string(m))
		if err != nil || got != m {
			t.Errorf("%s: got %s, %v", m, got, err)
		}
	}
	if _, err := parseMode("everything"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestConfigPath(t *testing.T) {
	path, args := configPath([]string{"my.env", "-mode=ccadb"})
	if path != "my.env" || len(args) != 1 {
		t.Errorf("unexpected %s %v", path, args)
	}
	path, args = configPath([]string{"-mode=ccadb"})
	if path != "" || len(args) != 1 {
		t.Errorf("unexpected %s %v", path, args)
	}
}
