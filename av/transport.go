// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package av

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/stockparfait/alphavantage/catalog"
	"github.com/stockparfait/alphavantage/normalize"
	"github.com/stockparfait/alphavantage/params"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
)

// URL of the query endpoint. It may be overwritten in tests.
var URL = "https://www.alphavantage.co/query"

// ErrTransport is wrapped by errors of sending a request or reading its
// response.
var ErrTransport = errors.Reason("transport failure")

type callConfig struct {
	timeout time.Duration
	proxy   map[string]string
}

// CallOption overrides a session setting for a single call.
type CallOption func(*callConfig)

// WithTimeout sets the timeout of the call.
func WithTimeout(d time.Duration) CallOption {
	return func(c *callConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProxy sets the proxies of the call by URL scheme.
func WithProxy(proxy map[string]string) CallOption {
	return func(c *callConfig) { c.proxy = proxy }
}

// proxyFunc selects the proxy by the scheme of the request URL. Schemes
// without a proxy connect directly.
func proxyFunc(proxy map[string]string) (func(*http.Request) (*url.URL, error), error) {
	urls := make(map[string]*url.URL, len(proxy))
	for scheme, p := range proxy {
		u, err := url.Parse(p)
		if err != nil {
			return nil, errors.Annotate(catalog.ErrConfiguration,
				"invalid %s proxy '%s': %s", scheme, p, err.Error())
		}
		urls[scheme] = u
	}
	return func(req *http.Request) (*url.URL, error) {
		return urls[req.URL.Scheme], nil
	}, nil
}

// send the GET request with p as the query string, and return the response
// body with its status code. A non-200 status is logged but is not an error.
func send(ctx context.Context, p params.Params, cc callConfig) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, cc.timeout)
	defer cancel()

	if len(cc.proxy) > 0 {
		f, err := proxyFunc(cc.proxy)
		if err != nil {
			return nil, 0, err
		}
		ctx = fetch.UseClient(ctx, &http.Client{Transport: &http.Transport{Proxy: f}})
	}
	function := p.Get(params.Function)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return nil, 0, errors.Annotate(ErrTransport, "failed to create request for %s: %s",
			function, err.Error())
	}
	req.URL.RawQuery = p.Values().Encode()
	client := http.DefaultClient
	if cl := fetch.GetClient(ctx); cl != nil {
		client = cl
	}
	// Sent exactly once: failed requests are not retried.
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, errors.Annotate(ErrTransport, "request for %s failed: %s",
			function, err.Error())
	}
	defer resp.Body.Close()
	body, err := readResponse(ctx, function, resp)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func readResponse(ctx context.Context, function string, resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Annotate(ErrTransport, "failed to read response for %s: %s",
			function, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		logging.Errorf(ctx, "request failed: %d\nText:\n%s\n%s",
			resp.StatusCode, string(body), function)
	}
	return body, nil
}

// decode a JSON response body, which must be an object.
func decode(function string, body []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Annotate(normalize.ErrShape,
			"response for %s is not a JSON object: %s", function, err.Error())
	}
	return raw, nil
}
