/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package api

// A Getter returns the REST API resource for reading a given endpoint.
// The returned string should fulfill all paths BEYOND the base path
// (<proto>://<hostname>/v1).
//
// E.G. If we are reading the records of a collection at "https://firefox.settings.services.mozilla.com/v1" then
// this method should return "/buckets/<bucket>/collections/<collection>/records"
type Getter interface {
	Get() string
}
