package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dgdiegogallo/mensajeria/internal/model/channel"
	"github.com/dgdiegogallo/mensajeria/internal/model/message"
)

// Client implements ChannelStore against the backend's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the channel record.
func (c *Client) Fetch(ctx context.Context, channelID string) (channel.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.channelURL(channelID), nil)
	if err != nil {
		return channel.Record{}, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return channel.Record{}, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return channel.Record{}, ErrChannelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return channel.Record{}, fmt.Errorf("fetch channel %s: unexpected status %d", channelID, resp.StatusCode)
	}

	var record channel.Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return channel.Record{}, fmt.Errorf("decode channel %s: %w", channelID, err)
	}
	if record.ID == "" {
		record.ID = channelID
	}
	return record, nil
}

// ReplaceContent overwrites the channel's content list.
func (c *Client) ReplaceContent(ctx context.Context, channelID string, entries []message.Entry) error {
	payload := map[string]json.RawMessage{"content": message.EncodeContent(entries)}
	return c.patch(ctx, channelID, payload)
}

// ReplaceBots overwrites the channel's bot registry.
func (c *Client) ReplaceBots(ctx context.Context, channelID string, bots map[string]channel.Bot) error {
	data, err := json.Marshal(bots)
	if err != nil {
		return fmt.Errorf("encode bot registry: %w", err)
	}
	return c.patch(ctx, channelID, map[string]json.RawMessage{"botRegistry": data})
}

func (c *Client) patch(ctx context.Context, channelID string, payload map[string]json.RawMessage) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode channel update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.channelURL(channelID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("update channel %s: %w", channelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrChannelNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("update channel %s: unexpected status %d", channelID, resp.StatusCode)
	}
	return nil
}

func (c *Client) channelURL(channelID string) string {
	return fmt.Sprintf("%s/channels/%s", c.baseURL, url.PathEscape(channelID))
}
