package avero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/application"
)

// Client pages through the remote Avero data set.
type Client struct {
	baseURL string
	auth    string
	http    *http.Client
}

// NewClient returns a client sending auth verbatim in the Authorization header.
func NewClient(baseURL, auth string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("avero api url is empty")
	}
	if strings.TrimSpace(auth) == "" {
		return nil, errors.New("avero api key is empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

var _ application.RawSource = (*Client)(nil)

type listResponse struct {
	Data []map[string]any `json:"data"`
}

// FetchPage requests GET /<resource>?limit=&offset= and returns the "data" array.
func (c *Client) FetchPage(ctx context.Context, resource string, offset, limit int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	endpoint := c.baseURL + "/" + url.PathEscape(resource) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("avero api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode %s page: %w", resource, err)
	}
	return parsed.Data, nil
}
