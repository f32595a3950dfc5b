package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// maxBodyBytes caps how much of a response body is read
const maxBodyBytes = 16 << 20

// ErrBodyTooLarge is returned when a response body exceeds the fetch limit
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError is returned when the data source answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
	// Body holds the start of the response body
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %s", e.URL, e.Status)
}

// CacheBust returns rawURL with t=<unix millis of now> set, replacing any
// previous t parameter.
func CacheBust(rawURL string, now time.Time) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetcher performs cache-defeating GET requests
type fetcher struct {
	client *http.Client
	now    func() time.Time
	limit  int64
}

func newFetcher(client *http.Client) fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return fetcher{client: client, now: time.Now, limit: maxBodyBytes}
}

// get fetches rawURL and returns the body. The caller's URL is never cached.
func (f fetcher) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	busted, err := CacheBust(rawURL, f.now())
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, busted, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(snippet)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.limit {
		return nil, fmt.Errorf("GET %s: %w (limit %d bytes)", rawURL, ErrBodyTooLarge, f.limit)
	}
	return body, nil
}
