package engine

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NewHTTPClient creates the shared client used for every upstream call.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
			TLSHandshakeTimeout: 15 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// Do executes req against the configured client and maps any non-200
// response to an UpstreamError carrying the status and a short body
// snippet. Transport failures come back as an UpstreamError without a
// status. On success the caller owns resp.Body. Failed calls are never
// retried here; each unit of work gets exactly one attempt per request.
func Do(op string, req *http.Request) (*http.Response, error) {
	client := Cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		resp.Body.Close()
		ue := &UpstreamError{Op: op, Status: resp.StatusCode}
		if s := strings.TrimSpace(string(snippet)); s != "" {
			ue.Err = errors.New(Truncate(s, 256))
		}
		return nil, ue
	}
	return resp, nil
}

// ReadBody drains resp.Body up to the configured size cap, transparently
// inflating gzip, and closes it.
func ReadBody(op string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &UpstreamError{Op: op, Err: fmt.Errorf("gzip: %w", err)}
		}
		defer gz.Close()
		r = gz
	}

	max := Cfg.MaxBodyBytes
	if max <= 0 {
		max = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, max))
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}
