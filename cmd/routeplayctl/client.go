package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// client is a thin HTTP client for the gateway.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{base: strings.TrimRight(base, "/"), http: &http.Client{Timeout: timeout}}
}

// httpStatusError is a non-2xx reply. Detail is taken from the problem body when present.
type httpStatusError struct {
	Status int
	Detail string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Detail)
}

func (c *client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var p struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		detail := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &p) == nil && (p.Detail != "" || p.Title != "") {
			detail = p.Detail
			if detail == "" {
				detail = p.Title
			}
		}
		return &httpStatusError{Status: resp.StatusCode, Detail: detail}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

type serverInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

func (c *client) servers(ctx context.Context) ([]serverInfo, error) {
	var out struct {
		Servers []serverInfo `json:"servers"`
	}
	err := c.do(ctx, http.MethodGet, "/servers", nil, &out)
	return out.Servers, err
}

type solveParams struct {
	Timeout     int
	Async       bool
	CallbackURL string
}

func (c *client) solve(ctx context.Context, server string, body []byte, p solveParams) (map[string]any, error) {
	q := url.Values{}
	if p.Timeout > 0 {
		q.Set("timeout", fmt.Sprint(p.Timeout))
	}
	if p.Async {
		q.Set("async", "true")
	}
	if p.CallbackURL != "" {
		q.Set("callback_url", p.CallbackURL)
	}
	path := "/solve/" + url.PathEscape(server)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out map[string]any
	err := c.do(ctx, http.MethodPost, path, body, &out)
	return out, err
}

func (c *client) job(ctx context.Context, id string) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/job/"+url.PathEscape(id), nil, &out)
	return out, err
}

// waitJob polls until the job is completed or failed.
func (c *client) waitJob(ctx context.Context, id string, every time.Duration) (map[string]any, error) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		j, err := c.job(ctx, id)
		if err != nil {
			return nil, err
		}
		if s, _ := j["status"].(string); s == "completed" || s == "failed" {
			return j, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (c *client) match(ctx context.Context, body []byte) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/map-matching/match", body, &out)
	return out, err
}
