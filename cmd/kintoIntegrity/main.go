/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// kintoIntegrity checks that the revocations Firefox has in its cert_storage agree
// with what Kinto, revocations.txt, and the CCADB say that it should have.
//
//	kintoIntegrity [config.env] [-mode=full|without_revocations|ccadb|ccadb_status|revocations]
//
// The report is written to stdout as JSON. See the config package for every available setting.
package main // import "github.com/mozilla/OneCRL-Tools/kintoIntegrity/cmd/kintoIntegrity"

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/canonical"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/ccadb"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/certstorage"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/config"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/firefox"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/reconcile"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/revocations"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	Full               Mode = "full"
	WithoutRevocations Mode = "without_revocations"
	CCADB              Mode = "ccadb"
	CCADBStatus        Mode = "ccadb_status"
	Revocations        Mode = "revocations"
)

var modes = []Mode{Full, WithoutRevocations, CCADB, CCADBStatus, Revocations}

func parseMode(s string) (Mode, error) {
	for _, m := range modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", errors.Errorf("unknown mode '%s', expected one of %v", s, modes)
}

func main() {
	path, args := configPath(os.Args[1:])
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	mode := flags.String("mode", string(Full), "one of full, without_revocations, ccadb, ccadb_status, revocations")
	_ = flags.Parse(args)
	if path == "" && flags.NArg() > 0 {
		path = flags.Arg(0)
	}
	if path == "" {
		if _, err := os.Stat(config.DefaultPath()); err == nil {
			path = config.DefaultPath()
		}
	}
	c, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config.env appears to be malformed, err: %v\n", err)
		os.Exit(1)
	}
	m, err := parseMode(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := setupLogging(c); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := _main(context.Background(), c, m, os.Stdout); err != nil {
		log.WithError(err).Error("integrity check failed")
		os.Exit(1)
	}
	log.Info("integrity check completed")
}

// configPath pulls a leading positional config.env out from in front of the flags.
func configPath(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func setupLogging(c *config.Config) error {
	err := c.SetLogOut()
	if err != nil {
		return errors.Wrap(err, "failed to set logging out file")
	}
	level, err := c.ParseLogLevel()
	if err != nil {
		return errors.Errorf("unexpected logging level %s, expected one of either "+
			"panic, fatal, error, warn, warning info, debug, trace", c.LogLevel)
	}
	log.SetLevel(level)
	log.SetReportCaller(true)
	log.SetFormatter(&log.JSONFormatter{PrettyPrint: true})
	return nil
}

// sources is everything fetched for a single run. Fields are only
// populated if the mode being ran needs them.
type sources struct {
	certStorage []certstorage.Entry
	kinto       *kinto.OneCRL
	revocations []revocations.Entry
	ccadb       ccadb.CCADB
}

// _main is just a unit testable main (since main is looking at command line args
// and loading configs from the filesystem it's not a great target for testing).
func _main(ctx context.Context, c *config.Config, mode Mode, out io.Writer) error {
	overlay := canonical.EmptyOverlay()
	if c.Overlay != "" {
		o, err := canonical.LoadOverlay(c.Overlay)
		if err != nil {
			return err
		}
		overlay = o
		log.WithField("entries", overlay.Len()).Info("loaded canonicalization overlay")
	}
	canon := canonical.New(overlay)
	s, err := fetch(ctx, c, mode)
	if err != nil {
		return err
	}
	if mode == Revocations {
		return revocations.Encode(out, revocations.FromOneCRL(s.kinto))
	}
	var report *reconcile.Report
	certStorage := reconcile.CertStorageSet(s.certStorage, canon, c.Workers)
	switch mode {
	case Full:
		report = reconcile.Full(certStorage,
			reconcile.KintoSet(s.kinto, canon, c.Workers),
			reconcile.RevocationsTxtSet(s.revocations, canon, c.Workers))
	case WithoutRevocations:
		report = reconcile.WithoutRevocations(certStorage, reconcile.KintoSet(s.kinto, canon, c.Workers))
	case CCADB:
		report = reconcile.CCADB(certStorage, reconcile.CCADBSets(s.ccadb, canon, c.Workers))
	case CCADBStatus:
		report = reconcile.StatusBucketedDiff(certStorage, reconcile.CCADBSets(s.ccadb, canon, c.Workers))
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return errors.WithStack(encoder.Encode(report))
}

// fetch retrieves every source that the given mode needs, concurrently. The first
// source that cannot be retrieved fails the whole run.
func fetch(ctx context.Context, c *config.Config, mode Mode) (*sources, error) {
	s := &sources{}
	g, ctx := errgroup.WithContext(ctx)
	if mode != Revocations {
		g.Go(func() error {
			entries, err := openCertStorage(ctx, c)
			s.certStorage = entries
			return err
		})
	}
	if mode == Full || mode == WithoutRevocations || mode == Revocations {
		g.Go(func() error {
			o, err := fetchKinto(c)
			s.kinto = o
			return err
		})
	}
	if mode == Full {
		g.Go(func() error {
			if c.RevocationsTxt == "" {
				return &reconcile.SourceFetchError{Source: reconcile.RevocationsTxtSource, Err: errors.Errorf("%s is not set", config.RevocationsTxt)}
			}
			entries, err := reconcile.LoadRevocations(c.RevocationsTxt)
			s.revocations = entries
			return err
		})
	}
	if mode == CCADB || mode == CCADBStatus {
		g.Go(func() error {
			report, err := reconcile.LoadCCADB(c.CCADB)
			s.ccadb = report
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s, nil
}

func openCertStorage(ctx context.Context, c *config.Config) ([]certstorage.Entry, error) {
	if c.CertStorage == "" {
		return nil, &reconcile.SourceFetchError{Source: reconcile.CertStorageSource, Err: errors.Errorf("%s is not set", config.CertStorage)}
	}
	if c.PopulationTicks > 0 {
		wait, cancel := context.WithTimeout(ctx, c.PopulationTimeout)
		defer cancel()
		if err := firefox.WaitForPopulation(wait, c.CertStorage, c.PopulationInterval, c.PopulationTicks); err != nil {
			return nil, &reconcile.SourceFetchError{Source: reconcile.CertStorageSource, Err: err}
		}
	}
	snapshot, err := certstorage.OpenSQLite(c.CertStorage)
	if err != nil {
		return nil, &reconcile.SourceFetchError{Source: reconcile.CertStorageSource, Err: err}
	}
	return reconcile.LoadCertStorage(snapshot)
}

func fetchKinto(c *config.Config) (*kinto.OneCRL, error) {
	client, err := c.KintoClient()
	if err != nil {
		return nil, &reconcile.SourceFetchError{Source: reconcile.KintoSource, Err: err}
	}
	if c.KintoUser != "" || c.KintoToken != "" {
		authenticated, err := client.TryAuth()
		if err != nil {
			return nil, &reconcile.SourceFetchError{Source: reconcile.KintoSource, Err: err}
		}
		if !authenticated {
			log.WithField("kinto", c.Kinto).Warn("the configured Kinto credentials were not accepted")
		}
	}
	return reconcile.LoadKinto(client, c.Collection())
}
