/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package firefox holds what is known about how Firefox populates its cert_storage.
package firefox

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// WaitForPopulation blocks until the file at path has stopped growing.
//
// Firefox gives no signal for when it has finished syncing its revocations into cert_storage,
// so the best that can be done is to watch the size of the database and call it done once
// it is non-empty and has been the same size for ticks consecutive intervals. This is a heuristic.
// A slow sync that stalls for longer than interval*ticks will be reported as done.
//
// A ticks of zero or less returns immediately. ctx is the only bound on how long this may take.
func WaitForPopulation(ctx context.Context, path string, interval time.Duration, ticks int) error {
	if ticks <= 0 {
		return nil
	}
	if interval <= 0 {
		return errors.Errorf("polling interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var last int64 = -1
	unchanged := 0
	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "gave up waiting for %s to be populated", path)
		case <-ticker.C:
		}
		info, err := os.Stat(path)
		switch {
		case os.IsNotExist(err):
			log.WithField("path", path).Debug("waiting for cert_storage to be created")
			last, unchanged = -1, 0
			continue
		case err != nil:
			return errors.WithStack(err)
		}
		size := info.Size()
		if size > 0 && size == last {
			unchanged++
		} else {
			unchanged = 0
		}
		last = size
		log.WithField("path", path).
			WithField("size", size).
			WithField("unchanged", unchanged).
			Debug("polled cert_storage")
		if unchanged >= ticks {
			log.WithField("path", path).WithField("size", size).Info("cert_storage appears to be populated")
			return nil
		}
	}
}
