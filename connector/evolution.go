package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/studiobotics/attendant/botengine/config"
)

// EvolutionClientOptions configures the provider HTTP client.
type EvolutionClientOptions struct {
	BaseURL    string
	APIKey     string
	Instance   string
	HTTPClient *http.Client
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// EvolutionClient is a Messenger speaking the Evolution API wire format.
//
// Interactive lists are flattened to numbered text: the provider's native
// list payloads fail intermittently with error 400, and numbered text is the
// behavior leads actually see in production.
type EvolutionClient struct {
	baseURL    string
	apiKey     string
	instance   string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewEvolutionClient(opts EvolutionClientOptions) *EvolutionClient {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	maxDelay := opts.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	return &EvolutionClient{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		instance:   strings.TrimSpace(opts.Instance),
		httpClient: httpClient,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
}

func (c *EvolutionClient) SendText(ctx context.Context, to, text string) error {
	if text == "" {
		return nil
	}
	return c.post(ctx, "/message/sendText/"+c.instance, map[string]any{
		"number":      to,
		"text":        text,
		"delay":       0,
		"linkPreview": true,
	})
}

func (c *EvolutionClient) SendList(ctx context.Context, to string, list config.ListMessage) error {
	body := FormatList(list)
	if body == "" {
		return nil
	}
	return c.SendText(ctx, to, body)
}

func (c *EvolutionClient) SendLocation(ctx context.Context, to string, loc config.Location) error {
	return c.post(ctx, "/message/sendLocation/"+c.instance, map[string]any{
		"number":    to,
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"name":      loc.Name,
		"address":   loc.Address,
	})
}

func (c *EvolutionClient) SendReaction(ctx context.Context, to string, ref MessageRef, emoji string) error {
	return c.post(ctx, "/message/sendReaction/"+c.instance, map[string]any{
		"number":   to,
		"reaction": emoji,
		"key":      ref,
	})
}

func (c *EvolutionClient) SetPresence(ctx context.Context, to string, presence Presence) error {
	return c.post(ctx, "/chat/sendPresence/"+c.instance, map[string]any{
		"number":   to,
		"presence": string(presence),
		"delay":    0,
	})
}

// FormatList renders an interactive list as numbered text.
func FormatList(list config.ListMessage) string {
	if len(list.Sections) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n%s\n\n", list.Title, list.Prompt)

	option := 1
	for _, section := range list.Sections {
		if section.Title != "" {
			fmt.Fprintf(&b, "*%s*\n", section.Title)
		}
		for _, row := range section.Rows {
			fmt.Fprintf(&b, "%d. %s", option, row.Title)
			if row.Description != "" {
				fmt.Fprintf(&b, " - %s", row.Description)
			}
			b.WriteString("\n")
			option++
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *EvolutionClient) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("connector: encode %s: %w", path, err)
	}
	url := c.baseURL + path

	var lastErr error
	delay := c.baseDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("connector: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = &HTTPStatusError{StatusCode: resp.StatusCode, URL: url, Body: strings.TrimSpace(string(respBody))}
		// Client errors other than throttling will not improve with retries.
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return lastErr
		}
	}
	return fmt.Errorf("connector: %s failed after %d attempts: %w", path, c.maxRetries+1, lastErr)
}
