package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JakeFAU/stockwatch/internal/monitor"
)

// DiscordMention prefixes every Discord message.
const DiscordMention = "@everyone"

// Discord posts events to a Discord webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
}

// NewDiscord returns a webhook channel. An empty URL yields an unconfigured channel.
func NewDiscord(webhookURL string, client *http.Client) *Discord {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Discord{webhookURL: webhookURL, client: client}
}

// Name implements Channel.
func (d *Discord) Name() string { return "discord" }

// Configured implements Channel.
func (d *Discord) Configured() bool { return d.webhookURL != "" }

// Send implements Channel.
func (d *Discord) Send(ctx context.Context, event monitor.Event) error {
	if !d.Configured() {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(map[string]string{"content": Markdown(event, DiscordMention)})
	if err != nil {
		return fmt.Errorf("encode discord payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post discord webhook: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
