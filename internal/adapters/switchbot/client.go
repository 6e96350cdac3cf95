package switchbot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bnema/opsbot/internal/adapters/httpjson"
	"github.com/bnema/opsbot/internal/domain"
)

const DefaultBaseURL = "https://api.switch-bot.com"

type Poster interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body any) (httpjson.Response, error)
}

type Scene struct {
	ID   string `json:"sceneId"`
	Name string `json:"sceneName"`
}

type Client struct {
	poster  Poster
	baseURL string
}

func NewClient(poster Poster, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{poster: poster, baseURL: strings.TrimRight(baseURL, "/")}
}

// ExecuteScene triggers a scene. Only HTTP 200 counts as success; the body is
// not inspected.
func (c *Client) ExecuteScene(ctx context.Context, token, sceneID string) error {
	sceneID = strings.TrimSpace(sceneID)
	if sceneID == "" {
		return fmt.Errorf("%w: scene id is empty", domain.ErrConfig)
	}

	endpoint := c.baseURL + "/v1.1/scenes/" + url.PathEscape(sceneID) + "/execute"
	resp, err := c.poster.Do(ctx, http.MethodPost, endpoint, httpjson.SwitchBotHeaders(token), map[string]any{})
	if err != nil {
		return fmt.Errorf("execute scene %s: %w", sceneID, err)
	}
	if resp.Status != http.StatusOK {
		return fmt.Errorf("execute scene %s: %w", sceneID, statusError(resp))
	}

	return nil
}

func (c *Client) ListScenes(ctx context.Context, token string) ([]Scene, error) {
	resp, err := c.poster.Do(ctx, http.MethodGet, c.baseURL+"/v1.1/scenes", httpjson.SwitchBotHeaders(token), nil)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	if resp.Status != http.StatusOK {
		return nil, fmt.Errorf("list scenes: %w", statusError(resp))
	}

	var payload struct {
		StatusCode int     `json:"statusCode"`
		Message    string  `json:"message"`
		Body       []Scene `json:"body"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}

	return payload.Body, nil
}

func statusError(resp httpjson.Response) error {
	if err := resp.Err(); err != nil {
		return err
	}
	return domain.NewPlatformError(resp.Status, 0, "unexpected status", resp.Raw)
}
