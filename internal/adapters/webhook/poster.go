package webhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/opsbot/internal/adapters/httpjson"
	"github.com/bnema/opsbot/internal/domain"
)

type Poster interface {
	PostJSON(ctx context.Context, url string, headers map[string]string, body any) (httpjson.Response, error)
}

// Client posts plain messages to a Discord channel webhook.
type Client struct {
	poster   Poster
	username string
}

func NewClient(poster Poster, username string) *Client {
	return &Client{poster: poster, username: username}
}

func (c *Client) Post(ctx context.Context, url, content string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("%w: webhook url is empty", domain.ErrConfig)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: webhook message is empty", domain.ErrConfig)
	}
	if len([]rune(content)) > domain.MaxMessageLength {
		return fmt.Errorf("%w: webhook message exceeds %d characters", domain.ErrPayloadTooLarge, domain.MaxMessageLength)
	}

	body := map[string]any{"content": content}
	if c.username != "" {
		body["username"] = c.username
	}

	resp, err := c.poster.PostJSON(ctx, url, nil, body)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if !resp.OK() {
		if platformErr := resp.Err(); platformErr != nil {
			return fmt.Errorf("post webhook: %w", platformErr)
		}
		return fmt.Errorf("post webhook: %w", domain.NewPlatformError(resp.Status, 0, "unexpected status", resp.Raw))
	}

	return nil
}
