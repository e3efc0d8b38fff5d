/* This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/. */

package kinto // import "github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto"

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto/api"
	"github.com/mozilla/OneCRL-Tools/kintoIntegrity/kinto/api/auth"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type expectations map[int]bool

var ok = expectations{http.StatusOK: true}

// Client is a thread safe, read only, client for the Kinto REST API.
//
// For information on the API that this client targets,
// please see the Kinto 1.x API documentation:
//
// https://docs.kinto-storage.org/en/stable/api/
type Client struct {
	host          string
	base          string
	scheme        string
	tool          string
	backoff       time.Duration
	authenticator auth.Authenticator
	inner         *http.Client
	lock          sync.Mutex
}

// NewClient constructs a client with the scheme (E.G "https"),
// the host (E.G "firefox.settings.services.mozilla.com"), and the API base (E.G "/v1").
func NewClient(scheme, host, base string) *Client {
	return &Client{
		host:          host,
		base:          base,
		scheme:        scheme,
		inner:         new(http.Client),
		authenticator: new(auth.Unauthenticated),
		tool:          "https://github.com/mozilla/OneCRL-Tools/kintoIntegrity",
		lock:          sync.Mutex{},
	}
}

// NewClientFromStr constructs a client from a full base URL (E.G "https://firefox.settings.services.mozilla.com/v1").
func NewClientFromStr(base string) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrapf(err, "bad Kinto URL '%s'", base)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("Kinto URL '%s' must have a scheme and a host", base)
	}
	return NewClient(u.Scheme, u.Host, strings.TrimSuffix(u.Path, "/")), nil
}

// WithAuthenticator sets the authentication backend for future requests.
func (c *Client) WithAuthenticator(authenticator auth.Authenticator) *Client {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.authenticator = authenticator
	return c
}

// WithHTTPClient replaces the underlying HTTP client (E.G. to configure timeouts).
func (c *Client) WithHTTPClient(inner *http.Client) *Client {
	c.inner = inner
	return c
}

// Alive returns back whether any error occurred while doing a GET on /
func (c *Client) Alive() bool {
	req, err := c.newRequest(http.MethodGet, "/")
	if err != nil {
		return false
	}
	return c.do(req, nil, nil) == nil
}

// AllRecords retrieves all records for the given collection.
//
// For details, please see:
// https://docs.kinto-storage.org/en/stable/api/1.x/records.html#retrieving-stored-records
func (c *Client) AllRecords(collection api.Getter) error {
	r, err := c.newRequest(http.MethodGet, collection.Get())
	if err != nil {
		return err
	}
	return c.do(r, collection, ok)
}

// TryAuth does a GET on the Kinto's root resource and checks for the presence of user
// metadata in order to determine the configured authenticator successfully authenticates.
//
// See https://docs.kinto-storage.org/en/stable/api/1.x/authentication.html#try-authentication for details.
func (c *Client) TryAuth() (bool, error) {
	r, err := c.newRequest(http.MethodGet, "/")
	if err != nil {
		return false, err
	}
	ret := make(map[string]interface{})
	err = c.do(r, &ret, ok)
	if err != nil {
		return false, err
	}
	_, authenticated := ret["user"]
	return authenticated, nil
}

// URL returns the full URL of the given endpoint.
func (c *Client) URL(endpoint string) string {
	return fmt.Sprintf("%s://%s%s%s", c.scheme, c.host, c.base, endpoint)
}

func (c *Client) newRequest(method string, endpoint string) (*http.Request, error) {
	req, err := http.NewRequest(method, c.URL(endpoint), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("X-AUTOMATED-TOOL", c.tool)
	return req, nil
}

func (c *Client) do(r *http.Request, target interface{}, accept expectations) error {
	backoff := c.getBackoff()
	c.authenticate(r)
	if backoff > 0 {
		// Kinto kindly asks us that we backoff when necessary
		// See https://docs.kinto-storage.org/en/stable/api/1.x/backoff.html
		log.WithField("backoff", backoff).Info("Kinto has asked us to backoff")
		time.Sleep(backoff)
	}
	resp, err := c.inner.Do(r)
	if err != nil {
		return errors.Wrapf(err, "request to %s failed", r.URL)
	}
	defer resp.Body.Close()
	receivedBackoff := resp.Header.Get("Backoff")
	if receivedBackoff != "" {
		b, err := strconv.Atoi(receivedBackoff)
		if err != nil {
			return errors.Errorf(
				"Kinto gave us a Backoff header, but "+
					"it did not parse to an integer. Got '%s'",
				receivedBackoff)
		}
		c.setBackoff(time.Second * time.Duration(b))
	} else {
		c.setBackoff(time.Duration(0))
	}
	if accept != nil {
		if _, ok := accept[resp.StatusCode]; !ok {
			b, err := ioutil.ReadAll(resp.Body)
			if err != nil {
				return errors.Errorf("expected status code %v, got %d", accept, resp.StatusCode)
			}
			return errors.Errorf("expected status code %v, got %d. Message %s", accept, resp.StatusCode, string(b))
		}
	}
	if target != nil {
		return errors.Wrapf(json.NewDecoder(resp.Body).Decode(&target), "failed to decode %s", r.URL)
	}
	return nil
}

func (c *Client) authenticate(r *http.Request) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.authenticator.Authenticate(r)
}

func (c *Client) getBackoff() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.backoff
}

func (c *Client) setBackoff(backoff time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.backoff = backoff
}
