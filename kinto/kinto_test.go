/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package kinto

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/canonical"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto/api/auth"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
)

// C=ES, O=IZENPE S.A., CN=Izenpe.com
const izenpe = "MDgxCzAJBgNVBAYTAkVTMRQwEgYDVQQKDAtJWkVOUEUgUy5BLjETMBEGA1UEAwwKSXplbnBlLmNvbQ=="

var records = fmt.Sprintf(`{"data": [
	{"schema": 1, "enabled": true, "id": "a", "last_modified": 1, "issuerName": "%[1]s", "serialNumber": "AKof",
	 "details": {"bug": "https://bugzilla.mozilla.org/show_bug.cgi?id=1", "who": "", "why": "", "name": "", "created": ""}},
	{"schema": 1, "enabled": true, "id": "b", "last_modified": 2, "issuerName": "%[1]s", "serialNumber": "AKof"},
	{"schema": 1, "enabled": true, "id": "c", "last_modified": 3, "subject": "%[1]s", "pubKeyHash": "qrs="},
	{"schema": 1, "enabled": true, "id": "d", "last_modified": 4}
]}`, izenpe)

func newServer(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	server := httptest.NewServer(handler)
	client, err := NewClientFromStr(server.URL + "/v1")
	if err != nil {
		t.Fatal(err)
	}
	return client, server.Close
}

func TestAllRecords(t *testing.T) {
	client, closer := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/buckets/security-state/collections/onecrl/records" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("X-AUTOMATED-TOOL") == "" {
			t.Error("expected an X-AUTOMATED-TOOL header")
		}
		fmt.Fprint(w, records)
	})
	defer closer()
	oneCRL := NewOneCRL()
	if err := client.AllRecords(oneCRL); err != nil {
		t.Fatal(err)
	}
	if len(oneCRL.Data) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(oneCRL.Data))
	}
	shapes := []Shape{IssuerSerial, IssuerSerial, SubjectKeyHash, Unrecognized}
	for i, want := range shapes {
		if oneCRL.Data[i].Shape != want {
			t.Errorf("entry %d: want %s, got %s", i, want, oneCRL.Data[i].Shape)
		}
	}
	if oneCRL.Data[0].ID() != "a" || oneCRL.Data[0].LastModified != 1 {
		t.Errorf("expected Kinto metadata to be decoded, got %v", oneCRL.Data[0].Record)
	}
	if oneCRL.Data[0].Details.Bug == "" {
		t.Error("expected details to be decoded")
	}
}

func TestEntryRevocation(t *testing.T) {
	c := canonical.New(nil)
	var oneCRL OneCRL
	if err := json.Unmarshal([]byte(records), &oneCRL); err != nil {
		t.Fatal(err)
	}
	a, err := oneCRL.Data[0].Revocation(c)
	if err != nil {
		t.Fatal(err)
	}
	want := revocation.NewIssuerSerial("C=ES,O=IZENPE S.A.,CN=Izenpe.com", "00:AA:1F", "")
	if a != want {
		t.Errorf("want %v, got %v", want, a)
	}
	b, err := oneCRL.Data[1].Revocation(c)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Error("expected duplicate Kinto entries to be equal")
	}
	skh, err := oneCRL.Data[2].Revocation(c)
	if err != nil {
		t.Fatal(err)
	}
	if skh.Kind != revocation.SubjectKeyHash || skh.Data != "AA:BB" {
		t.Errorf("unexpected revocation %v", skh)
	}
	if _, err := oneCRL.Data[3].Revocation(c); err == nil {
		t.Error("expected an error for an unrecognized entry")
	}
}

func TestNewOneCRLAt(t *testing.T) {
	o := NewOneCRLAt("security-state-staging", "")
	if got := o.Get(); got != "/buckets/security-state-staging/collections/onecrl/records" {
		t.Errorf("unexpected endpoint %s", got)
	}
}

func TestTryAuth(t *testing.T) {
	client, closer := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer secret" {
			fmt.Fprint(w, `{"user": {"id": "account:someone"}}`)
			return
		}
		fmt.Fprint(w, `{}`)
	})
	defer closer()
	authenticated, err := client.TryAuth()
	if err != nil {
		t.Fatal(err)
	}
	if authenticated {
		t.Error("expected an unauthenticated client to not be authenticated")
	}
	authenticated, err = client.WithAuthenticator(&auth.Token{Token: "secret"}).TryAuth()
	if err != nil {
		t.Fatal(err)
	}
	if !authenticated {
		t.Error("expected the token to authenticate")
	}
}

func TestUnexpectedStatus(t *testing.T) {
	client, closer := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "down for maintenance")
	})
	defer closer()
	if err := client.AllRecords(NewOneCRL()); err == nil {
		t.Fatal("expected an error for a 503")
	}
	if client.Alive() != true {
		t.Error("a server that answers at all is alive")
	}
}

func TestBadBackoff(t *testing.T) {
	client, closer := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Backoff", "soon")
		fmt.Fprint(w, `{"data": []}`)
	})
	defer closer()
	if err := client.AllRecords(NewOneCRL()); err == nil {
		t.Fatal("expected an error for a non-integer Backoff header")
	}
}

func TestNewClientFromStr(t *testing.T) {
	c, err := NewClientFromStr("https://firefox.settings.services.mozilla.com/v1/")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.URL("/"); got != "https://firefox.settings.services.mozilla.com/v1/" {
		t.Errorf("unexpected URL %s", got)
	}
	if _, err := NewClientFromStr("not a url"); err == nil {
		t.Error("expected an error for a URL with no scheme or host")
	}
}
