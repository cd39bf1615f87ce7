// Copyright 2026 The devlogs Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package opensearch implements the document indexing client used by the
// devlogs dispatcher. It exposes exactly the operation the shipping pipeline
// needs: send one document, report success or a typed failure.
package opensearch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fastjson"
)

// maxErrorBodyBytes bounds how much of an error response is read for
// diagnostics.
const maxErrorBodyBytes = 4 << 10

// Config carries the connection settings for a [Client].
type Config struct {
	BaseURL   string
	Username  string
	Password  string
	Index     string
	UserAgent string
	Timeout   time.Duration

	// DisableCompression turns off gzip request bodies.
	DisableCompression bool

	// HTTPClient substitutes the transport. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client indexes documents over the OpenSearch HTTP API. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	authHeader string
	index      string
	userAgent  string
	compress   bool
	httpClient *http.Client
}

// New creates a client from cfg.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	auth := ""
	if cfg.Username != "" || cfg.Password != "" {
		auth = "Basic " + base64.StdEncoding.EncodeToString(
			[]byte(cfg.Username+":"+cfg.Password),
		)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		authHeader: auth,
		index:      cfg.Index,
		userAgent:  cfg.UserAgent,
		compress:   !cfg.DisableCompression,
		httpClient: httpClient,
	}
}

// Index sends one document to the configured index. A nil return means the
// backend acknowledged the write; all failures are typed so callers can
// distinguish configuration problems from transport ones.
func (c *Client) Index(ctx context.Context, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("opensearch: marshal document: %w", err)
	}

	body, encoding, err := c.encodeBody(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/_doc", c.baseURL, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return &ConnectionError{Message: "create request", Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{
			Message: fmt.Sprintf("cannot reach OpenSearch at %s", c.baseURL),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	return c.checkResponse(resp)
}

// IndexName returns the configured index name.
func (c *Client) IndexName() string {
	return c.index
}

// encodeBody gzips the payload unless compression is disabled.
func (c *Client) encodeBody(payload []byte) (io.Reader, string, error) {
	if !c.compress {
		return bytes.NewReader(payload), "", nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, "", fmt.Errorf("opensearch: compress document: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("opensearch: compress document: %w", err)
	}
	return &buf, "gzip", nil
}

// checkResponse maps response status codes onto the package's error types.
func (c *Client) checkResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("opensearch: HTTP %d: %w", resp.StatusCode, ErrAuthenticationFailed)
	case http.StatusNotFound:
		return &IndexNotFoundError{Index: c.index}
	case http.StatusBadRequest:
		return &RequestError{Reason: errorReason(resp.Body)}
	default:
		return &ConnectionError{
			Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, errorReason(resp.Body)),
		}
	}
}

// errorReason extracts error.reason from an OpenSearch error body, falling
// back to the raw (truncated) body when the JSON does not parse.
func errorReason(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(raw)
	if err != nil {
		return string(raw)
	}
	if reason := v.GetStringBytes("error", "reason"); len(reason) > 0 {
		return string(reason)
	}
	if reason := v.GetStringBytes("error", "root_cause", "0", "reason"); len(reason) > 0 {
		return string(reason)
	}
	return string(raw)
}
