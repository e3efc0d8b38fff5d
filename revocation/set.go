/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package revocation

import (
	"sort"
)

// Set holds a mapping of Key -> Revocation and provides the set algebra
// used when reconciling revocation sources.
//
// Membership is decided solely by Key. If two revocations with the same
// Key are added then the first one wins, which means that whichever
// auxiliary data (E.G. a fingerprint) it carried is what will be reported.
//
// A Set is only mutated while it is being built. Union, Difference, and
// Intersection never modify their receiver or argument.
type Set struct {
	members map[Key]Revocation
}

func NewSet() *Set {
	return &Set{members: make(map[Key]Revocation)}
}

// FromSlice builds a set out of the given revocations.
func FromSlice(revocations []Revocation) *Set {
	s := &Set{members: make(map[Key]Revocation, len(revocations))}
	for _, r := range revocations {
		s.Add(r)
	}
	return s
}

func (s *Set) Add(r Revocation) {
	if _, ok := s.members[r.Key()]; ok {
		return
	}
	s.members[r.Key()] = r
}

func (s *Set) Get(key Key) (Revocation, bool) {
	r, ok := s.members[key]
	return r, ok
}

func (s *Set) Contains(r Revocation) bool {
	_, ok := s.members[r.Key()]
	return ok
}

func (s *Set) Len() int {
	return len(s.members)
}

func (s *Set) Iter() <-chan Revocation {
	ret := make(chan Revocation, len(s.members))
	defer close(ret)
	for _, v := range s.members {
		ret <- v
	}
	return ret
}

// Slice returns the members of the set sorted by kind, then name, then data.
func (s *Set) Slice() []Revocation {
	ret := make([]Revocation, 0, len(s.members))
	for _, v := range s.members {
		ret = append(ret, v)
	}
	sort.Slice(ret, func(i, j int) bool {
		a, b := ret[i], ret[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Data < b.Data
	})
	return ret
}

func (s *Set) Union(other *Set) *Set {
	union := &Set{members: make(map[Key]Revocation, len(s.members)+len(other.members))}
	for r := range s.Iter() {
		union.Add(r)
	}
	for r := range other.Iter() {
		union.Add(r)
	}
	return union
}

// Difference returns a Set of all Revocations that are in self
// but are NOT in other.
func (s *Set) Difference(other *Set) *Set {
	difference := NewSet()
	for r := range s.Iter() {
		if !other.Contains(r) {
			difference.Add(r)
		}
	}
	return difference
}

// Intersection returns a Set of all Revocations that are both in self
// AND in other. The returned members are the ones held by self.
func (s *Set) Intersection(other *Set) *Set {
	intersection := NewSet()
	for r := range s.Iter() {
		if other.Contains(r) {
			intersection.Add(r)
		}
	}
	return intersection
}
