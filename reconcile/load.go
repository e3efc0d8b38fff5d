/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package reconcile

import (
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/ccadb"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/certstorage"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocations"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LoadCertStorage reads every entry from the snapshot and closes it.
func LoadCertStorage(snapshot certstorage.Snapshot) (entries []certstorage.Entry, err error) {
	defer func() {
		if cerr := snapshot.Close(); cerr != nil && err == nil {
			err = &SourceFetchError{Source: CertStorageSource, Err: cerr}
		}
	}()
	entries, err = snapshot.Entries()
	if err != nil {
		return nil, &SourceFetchError{Source: CertStorageSource, Err: err}
	}
	log.WithField("entries", len(entries)).Debug("read cert_storage snapshot")
	return entries, nil
}

// LoadKinto retrieves every record of the given collection.
func LoadKinto(client *kinto.Client, collection *kinto.OneCRL) (*kinto.OneCRL, error) {
	if err := client.AllRecords(collection); err != nil {
		return nil, &SourceFetchError{Source: KintoSource, Err: err}
	}
	if collection.Data == nil {
		return nil, &SourceFetchError{Source: KintoSource, Err: errors.New("response carried no data")}
	}
	log.WithField("entries", len(collection.Data)).Debug("retrieved Kinto collection")
	return collection, nil
}

// LoadRevocations reads a revocations.txt from either a URL or a local file.
func LoadRevocations(location string) ([]revocations.Entry, error) {
	entries, err := revocations.Load(location)
	if err != nil {
		return nil, &SourceFetchError{Source: RevocationsTxtSource, Err: err}
	}
	log.WithField("entries", len(entries)).Debug("read revocations.txt")
	return entries, nil
}

// LoadCCADB retrieves the CCADB report. An empty url selects the default report.
func LoadCCADB(url string) (ccadb.CCADB, error) {
	var report ccadb.CCADB
	var err error
	if url == "" {
		report, err = ccadb.Default()
	} else {
		report, err = ccadb.FromURL(url)
	}
	if err != nil {
		return nil, &SourceFetchError{Source: CCADBSource, Err: err}
	}
	log.WithField("entries", len(report)).Debug("retrieved CCADB report")
	return report, nil
}
