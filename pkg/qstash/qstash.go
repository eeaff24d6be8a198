package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	URL     string        `split_words:"true" default:"https://qstash.upstash.io"`
	Token   string        `split_words:"true" required:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
	Retries int           `split_words:"true" default:"3"`
}

type Client struct {
	baseURL    string
	token      string
	retries    int
	httpClient *http.Client
}

type PublishOptions struct {
	// DeduplicationID lets QStash drop repeated publishes of the same message.
	DeduplicationID string
	Delay           time.Duration
}

type PublishResult struct {
	MessageID    string `json:"messageId"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("qstash token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		retries: cfg.Retries,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// PublishJSON enqueues body for delivery to destination, a URL or topic name.
func (c *Client) PublishJSON(ctx context.Context, destination string, body any, opts PublishOptions) (PublishResult, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return PublishResult{}, errors.New("qstash destination is required")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return PublishResult{}, fmt.Errorf("qstash marshal body: %w", err)
	}

	endpoint := c.baseURL + "/v2/publish/" + destination
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return PublishResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Upstash-Retries", fmt.Sprint(c.retries))
	if opts.DeduplicationID != "" {
		req.Header.Set("Upstash-Deduplication-Id", opts.DeduplicationID)
	}
	if opts.Delay > 0 {
		req.Header.Set("Upstash-Delay", fmt.Sprintf("%ds", int(opts.Delay.Seconds())))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PublishResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return PublishResult{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return PublishResult{}, fmt.Errorf("qstash http status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out PublishResult
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return PublishResult{}, fmt.Errorf("qstash decode response: %w", err)
		}
	}
	return out, nil
}
