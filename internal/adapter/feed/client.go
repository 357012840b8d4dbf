// Package feed fetches dispatch record snapshots from the CAD feed.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/sfpd-cad-cot/internal/domain"
	"github.com/go-resty/resty/v2"
)

// Client retrieves the current feed snapshot over HTTP.
// It implements pipeline.Fetcher.
type Client struct {
	url    string
	client *resty.Client
	logger *slog.Logger
}

// NewClient creates a feed client for url. Retries are disabled: the next
// scheduled poll is the retry.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "sfpdcadcot")
	return &Client{url: url, client: c, logger: logger}
}

// URL returns the feed source.
func (c *Client) URL() string { return c.url }

// Fetch downloads and decodes the full snapshot. Any transport, status or
// decode failure fails the whole fetch.
func (c *Client) Fetch(ctx context.Context) ([]domain.DispatchRecord, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch feed: status %d: %s", resp.StatusCode(), truncate(resp.String(), 256))
	}

	records, err := DecodeSnapshot(resp.Body())
	if err != nil {
		return nil, err
	}
	c.logger.Debug("feed fetched",
		"url", c.url,
		"records", len(records),
		"bytes", len(resp.Body()),
		"duration", resp.Time(),
	)
	return records, nil
}

// DecodeSnapshot parses a feed document: a JSON array of row objects. Only a
// document that is not an array fails; each row is decoded on its own and a
// corrupt row comes back with DecodeErr set.
func DecodeSnapshot(data []byte) ([]domain.DispatchRecord, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode feed snapshot: %w", err)
	}
	if rows == nil {
		return nil, errors.New("decode feed snapshot: document is not an array")
	}

	records := make([]domain.DispatchRecord, len(rows))
	for i, row := range rows {
		records[i] = domain.DecodeRecord(row)
	}
	return records, nil
}

// FileSource serves a recorded snapshot from disk, re-reading it on every
// fetch. It implements pipeline.Fetcher.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Fetch(ctx context.Context) ([]domain.DispatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return DecodeSnapshot(data)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
