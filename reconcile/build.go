/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package reconcile

import (
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocation"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Canonicalize maps the i'th raw entry of a source to a revocation. A nil
// revocation with a nil error means that the entry contributes nothing.
type Canonicalize func(i int) (*revocation.Revocation, error)

// BuildSet canonicalizes n entries across the given number of workers and collects the
// results into a single set. Entries that fail to canonicalize are logged and skipped.
// Results are merged in entry order, so when two entries share an identity the earlier
// one is kept no matter how many workers there are.
//
// canonicalize must be safe to call concurrently.
func BuildSet(source string, n, workers int, canonicalize Canonicalize) *revocation.Set {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	// Each worker writes only to the indices it owns.
	results := make([]*revocation.Revocation, n)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w // per-iteration copy; go directive is 1.21 (pre loopvar semantics)
		g.Go(func() error {
			for i := w; i < n; i += workers {
				r, err := canonicalize(i)
				if err != nil {
					log.WithError(err).
						WithField("source", source).
						WithField("index", i).
						Warn("skipping an entry that could not be canonicalized")
					continue
				}
				results[i] = r
			}
			return nil
		})
	}
	// Per entry failures are logged and skipped above, so no worker ever returns an error.
	g.Wait()
	set := revocation.NewSet()
	skipped := 0
	for _, r := range results {
		if r == nil {
			skipped++
			continue
		}
		set.Add(*r)
	}
	log.WithField("source", source).
		WithField("entries", n).
		WithField("revocations", set.Len()).
		WithField("skipped", skipped).
		Info("built revocation set")
	return set
}

// SymmetricDiff returns the members only found in a and the members only found in b.
func SymmetricDiff(a, b *revocation.Set) (onlyInA, onlyInB *revocation.Set) {
	return a.Difference(b), b.Difference(a)
}
