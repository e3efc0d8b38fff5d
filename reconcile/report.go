/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package reconcile

import (
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/ccadb"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
)

// Revocations is a sorted list of revocations. A nil *Revocations within a Report
// was not computed and is omitted, whereas a computed empty difference is rendered as [].
type Revocations = *[]revocation.Revocation

// Report is every difference that a single run may compute.
type Report struct {
	InKintoNotInCertStorage       Revocations `json:"in_kinto_not_in_cert_storage,omitempty"`
	InCertStorageNotInKinto       Revocations `json:"in_cert_storage_not_in_kinto,omitempty"`
	InCertStorageNotInRevocations Revocations `json:"in_cert_storage_not_in_revocations,omitempty"`
	InRevocationsNotInCertStorage Revocations `json:"in_revocations_not_in_cert_storage,omitempty"`
	InRevocationsNotInKinto       Revocations `json:"in_revocations_not_in_kinto,omitempty"`
	InKintoNotInRevocations       Revocations `json:"in_kinto_not_in_revocations,omitempty"`

	InCCADBNotInCertStorage Revocations `json:"in_ccadb_not_in_cert_storage,omitempty"`
	InCertStorageNotInCCADB Revocations `json:"in_cert_storage_not_in_ccadb,omitempty"`

	AddedAndPresentInCertStorage           Revocations `json:"added_and_present_in_cert_storage,omitempty"`
	AddedAndAbsentFromCertStorage          Revocations `json:"added_and_absent_from_cert_storage,omitempty"`
	ExpiredAndPresentInCertStorage         Revocations `json:"expired_and_present_in_cert_storage,omitempty"`
	ExpiredAndAbsentFromCertStorage        Revocations `json:"expired_and_absent_from_cert_storage,omitempty"`
	ReadyToAddAndPresentInCertStorage      Revocations `json:"ready_to_add_and_present_in_cert_storage,omitempty"`
	ReadyToAddAndAbsentFromCertStorage     Revocations `json:"ready_to_add_and_absent_from_cert_storage,omitempty"`
	EmptyAndPresentInCertStorage           Revocations `json:"empty_and_present_in_cert_storage,omitempty"`
	EmptyAndAbsentFromCertStorage          Revocations `json:"empty_and_absent_from_cert_storage,omitempty"`
	UnknownStatusAndPresentInCertStorage   Revocations `json:"unknown_status_and_present_in_cert_storage,omitempty"`
	UnknownStatusAndAbsentFromCertStorage  Revocations `json:"unknown_status_and_absent_from_cert_storage,omitempty"`
	AbsentFromCCADBAndPresentInCertStorage Revocations `json:"absent_from_ccadb_and_present_in_cert_storage,omitempty"`
}

func list(s *revocation.Set) Revocations {
	l := s.Slice()
	if l == nil {
		l = []revocation.Revocation{}
	}
	return &l
}

// Full compares cert_storage, Kinto, and revocations.txt with one another.
func Full(certStorage, kinto, revocationsTxt *revocation.Set) *Report {
	report := WithoutRevocations(certStorage, kinto)
	onlyCertStorage, onlyRevocations := SymmetricDiff(certStorage, revocationsTxt)
	report.InCertStorageNotInRevocations = list(onlyCertStorage)
	report.InRevocationsNotInCertStorage = list(onlyRevocations)
	onlyRevocations, onlyKinto := SymmetricDiff(revocationsTxt, kinto)
	report.InRevocationsNotInKinto = list(onlyRevocations)
	report.InKintoNotInRevocations = list(onlyKinto)
	return report
}

func WithoutRevocations(certStorage, kinto *revocation.Set) *Report {
	onlyKinto, onlyCertStorage := SymmetricDiff(kinto, certStorage)
	return &Report{
		InKintoNotInCertStorage: list(onlyKinto),
		InCertStorageNotInKinto: list(onlyCertStorage),
	}
}

// CCADB compares cert_storage with every revocation in the CCADB, regardless of status.
func CCADB(certStorage *revocation.Set, c *CCADBSet) *Report {
	onlyCCADB, onlyCertStorage := SymmetricDiff(c.All(), certStorage)
	return &Report{
		InCCADBNotInCertStorage: list(onlyCCADB),
		InCertStorageNotInCCADB: list(onlyCertStorage),
	}
}

// StatusBucketedDiff splits the CCADB by OneCRL status and reports, per status,
// which revocations are present in and absent from cert_storage.
//
// Membership is decided by identity alone. Only after every bucket is resolved are
// the present records given the fingerprint of the CCADB record in that same bucket.
func StatusBucketedDiff(certStorage *revocation.Set, c *CCADBSet) *Report {
	type bucket struct {
		present **[]revocation.Revocation
		absent  **[]revocation.Revocation
		set     *revocation.Set
	}
	report := &Report{}
	buckets := []bucket{
		{&report.AddedAndPresentInCertStorage, &report.AddedAndAbsentFromCertStorage, c.Bucket(ccadb.Added)},
		{&report.ExpiredAndPresentInCertStorage, &report.ExpiredAndAbsentFromCertStorage, c.Bucket(ccadb.Expired)},
		{&report.ReadyToAddAndPresentInCertStorage, &report.ReadyToAddAndAbsentFromCertStorage, c.Bucket(ccadb.ReadyToAdd)},
		{&report.EmptyAndPresentInCertStorage, &report.EmptyAndAbsentFromCertStorage, c.Bucket(ccadb.Empty)},
		{&report.UnknownStatusAndPresentInCertStorage, &report.UnknownStatusAndAbsentFromCertStorage, c.Unknown()},
	}
	for _, b := range buckets {
		*b.present = list(certStorage.Intersection(b.set))
		*b.absent = list(b.set.Difference(certStorage))
	}
	report.AbsentFromCCADBAndPresentInCertStorage = list(certStorage.Difference(c.All()))

	for _, b := range buckets {
		enrich(*b.present, fingerprintsOf(b.set))
	}
	return report
}

func fingerprintsOf(s *revocation.Set) map[revocation.Key]string {
	fingerprints := make(map[revocation.Key]string, s.Len())
	for r := range s.Iter() {
		if r.Fingerprint != "" {
			fingerprints[r.Key()] = r.Fingerprint
		}
	}
	return fingerprints
}

func enrich(records Revocations, fingerprints map[revocation.Key]string) {
	for i, r := range *records {
		if fp, ok := fingerprints[r.Key()]; ok {
			(*records)[i] = r.WithFingerprint(fp)
		}
	}
}
