package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"ptehtimetable_go/config"
)

const (
	timetableListPath   = "/timetable/server/ttviewer.js?__func=getTTViewerData"
	timetableDetailPath = "/timetable/server/regulartt.js?__func=regularttGetData"
)

// Fetcher is the remote boundary of the ingestion pipeline.
type Fetcher interface {
	ListTimetables(ctx context.Context, year int) ([]RawTimetable, []byte, error)
	TimetableDetails(ctx context.Context, ttNum string) (*TimetableTables, []byte, error)
}

// Client fetches raw timetable payloads from the EduPage server. The session
// credential is injected via configuration; nothing here is ambient state.
type Client struct {
	httpClient *http.Client
	baseURL    string
	sessionID  string
	retries    int
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		baseURL:    cfg.EdupageBaseURL,
		sessionID:  cfg.EdupageSessionID,
		retries:    cfg.FetchRetries,
	}
}

// ListTimetables returns the available timetable descriptors for a school
// year, plus the raw payload for archiving.
func (c *Client) ListTimetables(ctx context.Context, year int) ([]RawTimetable, []byte, error) {
	payload, err := c.postJSON(ctx, timetableListPath, []interface{}{nil, year})
	if err != nil {
		return nil, nil, err
	}
	timetables, err := ParseTimetableList(payload)
	if err != nil {
		return nil, nil, err
	}
	return timetables, payload, nil
}

// TimetableDetails returns one timetable's parsed entity tables, plus the
// raw payload for archiving.
func (c *Client) TimetableDetails(ctx context.Context, ttNum string) (*TimetableTables, []byte, error) {
	payload, err := c.postJSON(ctx, timetableDetailPath, []interface{}{nil, ttNum})
	if err != nil {
		return nil, nil, err
	}
	tables, err := ParseTimetableTables(payload)
	if err != nil {
		return nil, nil, err
	}
	return tables, payload, nil
}

// postJSON issues the EduPage RPC envelope with bounded retries. Network
// flakiness is the dominant failure mode on this boundary, so transient
// failures back off quadratically before giving up.
func (c *Client) postJSON(ctx context.Context, path string, args []interface{}) ([]byte, error) {
	body, err := json.Marshal(map[string]interface{}{
		"__args": args,
		"__gsh":  "00000000",
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries+1; attempt++ {
		payload, err := c.doPost(ctx, path, body)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt <= c.retries {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			logrus.WithFields(logrus.Fields{
				"path":    path,
				"attempt": attempt,
				"backoff": backoff.String(),
			}).WithError(err).Warn("Fetch failed, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("fetch %s failed after %d attempts: %w", path, c.retries+1, lastErr)
}

func (c *Client) doPost(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

// setHeaders applies the fixed browser header set the timetable server
// expects alongside the session cookie.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:138.0) Gecko/20100101 Firefox/138.0")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Cookie", "PHPSESSID="+c.sessionID)
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Cache-Control", "no-cache")
}
