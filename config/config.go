/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

// Package config loads the tool's configuration from a dotenv file and the process environment.
package config

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto/api/auth"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh/terminal"
)

const (
	// Base URL for Kinto [default: "https://firefox.settings.services.mozilla.com/v1"]
	Kinto        = "KINTO"
	kintoDefault = "https://firefox.settings.services.mozilla.com/v1"
	// Bucket holding OneCRL [default: "security-state"]
	KintoBucket = "KINTO_BUCKET"
	// The OneCRL collection [default: "onecrl"]
	KintoCollection = "KINTO_COLLECTION"
	// User account for Kinto. Requires KintoPassword to be set. Mutually exclusive with KintoToken.
	KintoUser = "KINTO_USER"
	// User password for Kinto. Requires KintoUser to be set. Mutually exclusive with KintoToken.
	// A password of "-" is read from the terminal.
	KintoPassword = "KINTO_PASSWORD"
	// Auth token for Kinto. Mutually exclusive with KintoUser and KintoPassword.
	KintoToken = "KINTO_TOKEN"
	// Timeout for each request made to Kinto. Zero means no timeout. [default: 1m]
	KintoTimeout = "KINTO_TIMEOUT"
	// URL of the CCADB revoked intermediates report [default: the public CCADB report]
	CCADB = "CCADB"
	// URL or path of a revocations.txt
	RevocationsTxt = "REVOCATIONS_TXT"
	// Path to a SQLite snapshot of cert_storage
	CertStorage = "CERT_STORAGE"
	// Optional path to a YAML list of hardcoded revocations for certificates that cannot be parsed.
	Overlay = "OVERLAY"
	// Number of goroutines used to canonicalize each source [default: number of CPUs]
	Workers = "WORKERS"
	// How often to poll the size of cert_storage while waiting for Firefox to populate it [default: 10s]
	PopulationInterval = "POPULATION_INTERVAL"
	// Number of consecutive unchanged polls before cert_storage is considered populated.
	// Zero does not wait at all. [default: 0]
	PopulationTicks = "POPULATION_TICKS"
	// Upper bound on waiting for cert_storage to be populated [default: 10m]
	PopulationTimeout = "POPULATION_TIMEOUT"
	// Target logging level for this tool.
	//	Available: panic, fatal, error, warn, warning info, debug, trace
	//	Default: info
	LogLevel = "LOG_LEVEL"
	// Target directory for logs. Each run of the tool will be logged to the timestamp
	// of when it was ran. [default: stdout/stderr]
	LogDir = "LOG_DIR"
)

var keys = []string{
	Kinto, KintoBucket, KintoCollection, KintoUser, KintoPassword, KintoToken, KintoTimeout,
	CCADB, RevocationsTxt, CertStorage, Overlay,
	Workers, PopulationInterval, PopulationTicks, PopulationTimeout,
	LogLevel, LogDir,
}

type Config struct {
	Kinto              string        `mapstructure:"KINTO"`
	KintoBucket        string        `mapstructure:"KINTO_BUCKET"`
	KintoCollection    string        `mapstructure:"KINTO_COLLECTION"`
	KintoUser          string        `mapstructure:"KINTO_USER"`
	KintoPassword      string        `mapstructure:"KINTO_PASSWORD"`
	KintoToken         string        `mapstructure:"KINTO_TOKEN"`
	KintoTimeout       time.Duration `mapstructure:"KINTO_TIMEOUT"`
	CCADB              string        `mapstructure:"CCADB"`
	RevocationsTxt     string        `mapstructure:"REVOCATIONS_TXT"`
	CertStorage        string        `mapstructure:"CERT_STORAGE"`
	Overlay            string        `mapstructure:"OVERLAY"`
	Workers            int           `mapstructure:"WORKERS"`
	PopulationInterval time.Duration `mapstructure:"POPULATION_INTERVAL"`
	PopulationTicks    int           `mapstructure:"POPULATION_TICKS"`
	PopulationTimeout  time.Duration `mapstructure:"POPULATION_TIMEOUT"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LogDir             string        `mapstructure:"LOG_DIR"`
}

func defaults() map[string]string {
	return map[string]string{
		Kinto:              kintoDefault,
		KintoBucket:        kinto.DefaultBucket,
		KintoCollection:    kinto.DefaultCollection,
		KintoTimeout:       "1m",
		Workers:            strconv.Itoa(runtime.NumCPU()),
		PopulationInterval: "10s",
		PopulationTicks:    "0",
		PopulationTimeout:  "10m",
	}
}

// DefaultPath is config.env sitting next to the running binary.
func DefaultPath() string {
	return filepath.Join(filepath.Dir(os.Args[0]), "config.env")
}

// Load reads the dotenv file at path, if path is not empty, and then overlays
// the process environment on top of it. Unset and empty values take their defaults.
func Load(path string) (*Config, error) {
	values := defaults()
	if path != "" {
		file, err := godotenv.Read(path)
		if err != nil {
			return nil, errors.Wrapf(err, "%s appears to be malformed", path)
		}
		for _, key := range keys {
			if v := file[key]; v != "" {
				values[key] = v
			}
		}
	}
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			values[key] = v
		}
	}
	return decode(values)
}

func decode(values map[string]string) (*Config, error) {
	config := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           config,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := decoder.Decode(values); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.KintoTimeout < 0 {
		return nil, errors.Errorf("%s must not be negative, got %s", KintoTimeout, config.KintoTimeout)
	}
	if config.PopulationTicks > 0 {
		if config.PopulationInterval <= 0 {
			return nil, errors.Errorf("%s must be positive when %s is set, got %s", PopulationInterval, PopulationTicks, config.PopulationInterval)
		}
		if config.PopulationTimeout <= 0 {
			return nil, errors.Errorf("%s must be positive when %s is set, got %s", PopulationTimeout, PopulationTicks, config.PopulationTimeout)
		}
	}
	return config, nil
}

// KintoClient returns a Kinto client targeting the configured instance with the configured credentials.
func (c *Config) KintoClient() (*kinto.Client, error) {
	client, err := kinto.NewClientFromStr(c.Kinto)
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct Kinto client from URL")
	}
	principal, err := KintoPrincipal(c.KintoUser, c.KintoPassword, c.KintoToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set Kinto credentials")
	}
	return client.
		WithAuthenticator(principal).
		WithHTTPClient(&http.Client{Timeout: c.KintoTimeout}), nil
}

// Collection returns an empty OneCRL collection at the configured bucket and collection.
func (c *Config) Collection() *kinto.OneCRL {
	return kinto.NewOneCRLAt(c.KintoBucket, c.KintoCollection)
}

var readPassword = func(user string) (string, error) {
	fmt.Fprintf(os.Stderr, "Please enter the Kinto password for user %s\n", user)
	password, err := terminal.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", errors.Wrap(err, "failed to read password from the terminal")
	}
	return string(password), nil
}

// KintoPrincipal returns an appropriate authenticator based on the input.
//
// If a username and password is provided, then an auth.User will be returned.
// If a token is provided, then an auth.Token will be returned.
// If nothing is provided, then the client is unauthenticated.
//
// All other combinations will result in an error.
func KintoPrincipal(user, password, token string) (auth.Authenticator, error) {
	if user == "" && password == "" && token == "" {
		return &auth.Unauthenticated{}, nil
	}
	if user != "" && password != "" && token != "" ||
		user == "" && password != "" ||
		user != "" && password == "" {
		return nil, fmt.Errorf("an invalid combination of 'user', 'password', and 'token' was set")
	}
	if token != "" {
		return &auth.Token{Token: token}, nil
	}
	if password == "-" {
		p, err := readPassword(user)
		if err != nil {
			return nil, err
		}
		password = p
	}
	return &auth.User{Username: user, Password: password}, nil
}

func (c *Config) ParseLogLevel() (log.Level, error) {
	if c.LogLevel == "" {
		return log.InfoLevel, nil
	}
	return log.ParseLevel(c.LogLevel)
}

// SetLogOut redirects logging to a file in LogDir, named by the current time.
func (c *Config) SetLogOut() error {
	if c.LogDir == "" {
		// Use stdout/stderr
		return nil
	}
	err := os.MkdirAll(c.LogDir, 0755)
	if err != nil {
		return err
	}
	out, err := os.Create(filepath.Join(c.LogDir, time.Now().UTC().Format(time.RFC3339)))
	if err != nil {
		return err
	}
	log.SetOutput(out)
	return nil
}
