// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

/*
Package embedding is the outbound HTTP client for the external embedding
service store_memory and G's dense search depend on: an opaque endpoint
that turns arbitrary text into a fixed-size float vector. A pooled
*http.Client wrapped in the resilience package's retry/timeout policy,
the same adapter-wide idiom vectorindex.Index.call uses.
*/
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/resilience"
	"github.com/vesper-project/vesper/validate"
)

// Config configures the embedding client.
type Config struct {
	ServiceURL string
	Timeout    time.Duration
	Dimension  int

	// RetryConfig and TimeoutConfig override the defaults used for every
	// call. Nil means resilience's own defaults.
	RetryConfig   *resilience.RetryConfig
	TimeoutConfig *resilience.TimeoutConfig
}

// Client embeds text against an external HTTP service.
type Client struct {
	httpClient *http.Client
	url        string
	dimension  int
	retry      *resilience.RetryConfig
	timeout    *resilience.TimeoutConfig
}

// New builds a Client against cfg.ServiceURL.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		url:       cfg.ServiceURL,
		dimension: cfg.Dimension,
		retry:     cfg.RetryConfig,
		timeout:   cfg.TimeoutConfig,
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
}

// Embed posts text to the embedding service and returns its vector,
// wrapped in the adapter-wide retry/timeout policy. The returned vector
// is validated for dimension and finiteness before being handed back.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := resilience.WithTimeout(ctx, c.timeout, func(ctx context.Context) error {
		return resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
			v, err := c.embedOnce(ctx, text)
			if err != nil {
				return err
			}
			vector = v
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, vesperrors.ErrInvalidInput.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, vesperrors.ErrInvalidInput.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, vesperrors.ErrNetworkUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, vesperrors.ErrNetworkUnavailable.WithMessage(
			fmt.Sprintf("embedding service returned %d: %s", resp.StatusCode, string(data)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, vesperrors.ErrInvalidInput.Wrap(err)
	}
	if c.dimension > 0 {
		if err := validate.Vector(out.Vector, c.dimension); err != nil {
			return nil, err
		}
	}
	return out.Vector, nil
}
