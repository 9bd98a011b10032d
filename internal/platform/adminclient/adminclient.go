// Package adminclient is a small resty-based HTTP client for
// tableserver's admin API, for callers that talk to a running server
// rather than opening the table file directly. tablectl does not use it;
// it opens the table files itself.
package adminclient

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Client talks to one tableserver instance's HTTP API.
type Client struct {
	http *resty.Client
}

// New builds a Client pointed at baseURL (e.g. "http://127.0.0.1:8080").
func New(baseURL string) *Client {
	return &Client{http: resty.New().SetBaseURL(baseURL)}
}

// Entry is the JSON shape of one key/tag pair exchanged with the admin
// API's /entries endpoints.
type Entry struct {
	Key string `json:"key"`
	Tag string `json:"tag"`
}

// Get fetches the entry for key. found is false (with no error) for a
// 404 response.
func (c *Client) Get(key string) (entry Entry, found bool, err error) {
	resp, err := c.http.R().SetResult(&entry).Get("/entries/" + key)
	if err != nil {
		return Entry{}, false, fmt.Errorf("adminclient: get %s: %w", key, err)
	}
	if resp.StatusCode() == 404 {
		return Entry{}, false, nil
	}
	if resp.IsError() {
		return Entry{}, false, fmt.Errorf("adminclient: get %s: %s", key, resp.Status())
	}
	return entry, true, nil
}

// Put creates or replaces the entry for key.
func (c *Client) Put(key, tag string) error {
	resp, err := c.http.R().SetBody(Entry{Key: key, Tag: tag}).Put("/entries/" + key)
	if err != nil {
		return fmt.Errorf("adminclient: put %s: %w", key, err)
	}
	if resp.IsError() {
		return fmt.Errorf("adminclient: put %s: %s", key, resp.Status())
	}
	return nil
}

// Delete removes the entry for key. found reports whether anything was
// actually deleted.
func (c *Client) Delete(key string) (found bool, err error) {
	resp, err := c.http.R().Delete("/entries/" + key)
	if err != nil {
		return false, fmt.Errorf("adminclient: delete %s: %w", key, err)
	}
	if resp.StatusCode() == 404 {
		return false, nil
	}
	if resp.IsError() {
		return false, fmt.Errorf("adminclient: delete %s: %s", key, resp.Status())
	}
	return true, nil
}

// Health checks tableserver's /healthz endpoint.
func (c *Client) Health() error {
	resp, err := c.http.R().Get("/healthz")
	if err != nil {
		return fmt.Errorf("adminclient: health: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("adminclient: health: %s", resp.Status())
	}
	return nil
}
