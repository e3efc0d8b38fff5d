/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package revocations reads and writes the legacy revocations.txt format:
//
//	# comment
//	<base64 issuer name>
//	 <base64 serial>
//	 <base64 serial>
//	<base64 subject name>
//		<base64 public key hash>
//
// A line with a single leading space is a serial and a line with a single leading tab
// is a key hash, each belonging to the closest name above it.
package revocations

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/canonical"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Entry struct {
	Kind revocation.Kind
	Name string
	Data string
}

func (e Entry) Revocation(c *canonical.Canonicalizer) (revocation.Revocation, error) {
	return c.FromEncoded(e.Kind, e.Name, e.Data)
}

// ParseError reports a structurally invalid revocations.txt.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("revocations.txt line %d: %s", e.Line, e.Msg)
}

// Load reads revocations.txt from either an http(s) URL or a local file.
func Load(location string) ([]Entry, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return FromURL(location)
	}
	return FromFile(location)
}

func FromURL(url string) ([]Entry, error) {
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

func FromFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return FromReader(f)
}

func FromReader(reader io.Reader) ([]Entry, error) {
	entries := make([]Entry, 0)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	name := ""
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == "", strings.HasPrefix(line, "#"):
			continue
		case len(line) >= 2 && isIndent(line[0]) && isIndent(line[1]):
			continue
		case line[0] == ' ', line[0] == '\t':
			kind := revocation.IssuerSerial
			if line[0] == '\t' {
				kind = revocation.SubjectKeyHash
			}
			if name == "" {
				return nil, &ParseError{Line: lineNumber, Msg: fmt.Sprintf("%s '%s' has no preceding name", describe(kind), strings.TrimSpace(line))}
			}
			data := strings.TrimSpace(line[1:])
			if data == "" {
				continue
			}
			entries = append(entries, Entry{Kind: kind, Name: name, Data: data})
		default:
			name = strings.TrimSpace(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read revocations.txt")
	}
	log.WithField("entries", len(entries)).Debug("parsed revocations.txt")
	return entries, nil
}

func isIndent(b byte) bool {
	return b == ' ' || b == '\t'
}

func describe(kind revocation.Kind) string {
	if kind == revocation.SubjectKeyHash {
		return "key hash"
	}
	return "serial"
}

// Encode writes entries out in revocations.txt form. Names are written in the order that
// they first appear, each followed by all of its serials and then all of its key hashes.
func Encode(w io.Writer, entries []Entry) error {
	order := make([]string, 0)
	seen := make(map[string]bool)
	serials := make(map[string][]string)
	hashes := make(map[string][]string)
	for _, e := range entries {
		if !seen[e.Name] {
			seen[e.Name] = true
			order = append(order, e.Name)
		}
		switch e.Kind {
		case revocation.IssuerSerial:
			serials[e.Name] = append(serials[e.Name], e.Data)
		case revocation.SubjectKeyHash:
			hashes[e.Name] = append(hashes[e.Name], e.Data)
		default:
			return errors.Errorf("cannot encode revocation of kind %s", e.Kind)
		}
	}
	out := bufio.NewWriter(w)
	for _, name := range order {
		fmt.Fprintf(out, "%s\n", name)
		for _, serial := range serials[name] {
			fmt.Fprintf(out, " %s\n", serial)
		}
		for _, hash := range hashes[name] {
			fmt.Fprintf(out, "\t%s\n", hash)
		}
	}
	return errors.WithStack(out.Flush())
}

// FromOneCRL converts Kinto entries into revocations.txt entries. Unrecognized entries are logged and skipped.
func FromOneCRL(o *kinto.OneCRL) []Entry {
	entries := make([]Entry, 0, len(o.Data))
	for _, e := range o.Data {
		switch e.Shape {
		case kinto.IssuerSerial:
			entries = append(entries, Entry{Kind: revocation.IssuerSerial, Name: e.IssuerName, Data: e.SerialNumber})
		case kinto.SubjectKeyHash:
			entries = append(entries, Entry{Kind: revocation.SubjectKeyHash, Name: e.Subject, Data: e.PubKeyHash})
		case kinto.Unrecognized:
			log.WithField("id", e.ID()).Warn("skipping a OneCRL entry that is neither issuer/serial nor subject/pubKeyHash")
		}
	}
	return entries
}
