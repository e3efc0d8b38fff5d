/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package reconcile

import (
	"sort"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/canonical"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/ccadb"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/certstorage"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocations"
	log "github.com/sirupsen/logrus"
)

// Source names, as they appear in logs and in SourceFetchError.
const (
	CertStorageSource    = "cert_storage"
	KintoSource          = "kinto"
	RevocationsTxtSource = "revocations.txt"
	CCADBSource          = "ccadb"
)

func CertStorageSet(entries []certstorage.Entry, canon *canonical.Canonicalizer, workers int) *revocation.Set {
	return BuildSet(CertStorageSource, len(entries), workers, func(i int) (*revocation.Revocation, error) {
		return entries[i].Revocation(canon)
	})
}

func KintoSet(oneCRL *kinto.OneCRL, canon *canonical.Canonicalizer, workers int) *revocation.Set {
	return BuildSet(KintoSource, len(oneCRL.Data), workers, func(i int) (*revocation.Revocation, error) {
		r, err := oneCRL.Data[i].Revocation(canon)
		if err != nil {
			return nil, err
		}
		return &r, nil
	})
}

func RevocationsTxtSet(entries []revocations.Entry, canon *canonical.Canonicalizer, workers int) *revocation.Set {
	return BuildSet(RevocationsTxtSource, len(entries), workers, func(i int) (*revocation.Revocation, error) {
		r, err := entries[i].Revocation(canon)
		if err != nil {
			return nil, err
		}
		return &r, nil
	})
}

// CCADBSet is the CCADB's revocations, bucketed by their OneCRL status.
type CCADBSet struct {
	// order is every status present, known statuses first in ccadb.Statuses order
	// followed by unknown statuses sorted lexically.
	order   []ccadb.OneCRLStatus
	buckets map[ccadb.OneCRLStatus]*revocation.Set
	all     *revocation.Set
}

// Bucket returns the revocations having the given status. The returned set is empty, never nil,
// for statuses that no revocation has.
func (c *CCADBSet) Bucket(status ccadb.OneCRLStatus) *revocation.Set {
	if b, ok := c.buckets[status]; ok {
		return b
	}
	return revocation.NewSet()
}

// Unknown returns every revocation whose status is not one of ccadb.Statuses.
func (c *CCADBSet) Unknown() *revocation.Set {
	unknown := revocation.NewSet()
	for _, status := range c.order {
		if !status.Known() {
			unknown = unknown.Union(c.buckets[status])
		}
	}
	return unknown
}

// All returns every revocation in the CCADB regardless of status. Should a revocation
// have more than one status, the copy from the earliest status in ccadb.Statuses is kept.
func (c *CCADBSet) All() *revocation.Set {
	return c.all
}

func CCADBSets(report ccadb.CCADB, canon *canonical.Canonicalizer, workers int) *CCADBSet {
	byStatus := make(map[ccadb.OneCRLStatus][]*ccadb.Certificate)
	for _, cert := range report {
		status := cert.Status()
		if !status.Known() {
			log.WithField("status", string(status)).
				WithField("fingerprint", cert.Fingerprint).
				Warn("unknown OneCRL status in the CCADB")
		}
		byStatus[status] = append(byStatus[status], cert)
	}
	set := &CCADBSet{
		order:   statusOrder(byStatus),
		buckets: make(map[ccadb.OneCRLStatus]*revocation.Set, len(byStatus)),
		all:     revocation.NewSet(),
	}
	for _, status := range set.order {
		certs := byStatus[status]
		bucket := BuildSet(CCADBSource+" "+status.String(), len(certs), workers, func(i int) (*revocation.Revocation, error) {
			r, err := certs[i].Revocation(canon)
			if err != nil {
				return nil, err
			}
			return &r, nil
		})
		set.buckets[status] = bucket
		set.all = set.all.Union(bucket)
	}
	return set
}

func statusOrder(byStatus map[ccadb.OneCRLStatus][]*ccadb.Certificate) []ccadb.OneCRLStatus {
	order := make([]ccadb.OneCRLStatus, 0, len(byStatus))
	for _, status := range ccadb.Statuses {
		if _, ok := byStatus[status]; ok {
			order = append(order, status)
		}
	}
	unknown := make([]ccadb.OneCRLStatus, 0)
	for status := range byStatus {
		if !status.Known() {
			unknown = append(unknown, status)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(order, unknown...)
}
