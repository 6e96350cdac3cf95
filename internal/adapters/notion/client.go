package notion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bnema/opsbot/internal/adapters/httpjson"
	"github.com/bnema/opsbot/internal/domain"
	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	DefaultVersion = "2022-06-28"
)

type Poster interface {
	Do(ctx context.Context, method, url string, headers map[string]string, body any) (httpjson.Response, error)
}

// Client wraps the Notion pages, databases and search endpoints. Responses
// with a failing status are returned as-is.
type Client struct {
	poster  Poster
	baseURL string
	version string
}

func NewClient(poster Poster, baseURL, version string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(version) == "" {
		version = DefaultVersion
	}

	return &Client{poster: poster, baseURL: strings.TrimRight(baseURL, "/"), version: version}
}

// CreatePage inserts a page into a database.
func (c *Client) CreatePage(ctx context.Context, token, databaseID string, properties map[string]any, children []any) (httpjson.Response, error) {
	id, err := NormalizeID(databaseID)
	if err != nil {
		return httpjson.Response{}, err
	}

	body := map[string]any{
		"parent":     map[string]any{"database_id": id},
		"properties": properties,
	}
	if len(children) > 0 {
		body["children"] = children
	}

	return c.poster.Do(ctx, http.MethodPost, c.baseURL+"/v1/pages", c.headers(token), body)
}

func (c *Client) UpdatePage(ctx context.Context, token, pageID string, properties map[string]any) (httpjson.Response, error) {
	id, err := NormalizeID(pageID)
	if err != nil {
		return httpjson.Response{}, err
	}

	body := map[string]any{"properties": properties}
	return c.poster.Do(ctx, http.MethodPatch, c.baseURL+"/v1/pages/"+url.PathEscape(id), c.headers(token), body)
}

// QueryDatabase posts a filter/sorts document; a nil query lists every row.
func (c *Client) QueryDatabase(ctx context.Context, token, databaseID string, query map[string]any) (httpjson.Response, error) {
	id, err := NormalizeID(databaseID)
	if err != nil {
		return httpjson.Response{}, err
	}
	if query == nil {
		query = map[string]any{}
	}

	return c.poster.Do(ctx, http.MethodPost, c.baseURL+"/v1/databases/"+url.PathEscape(id)+"/query", c.headers(token), query)
}

func (c *Client) Search(ctx context.Context, token, text string, filter map[string]any) (httpjson.Response, error) {
	body := map[string]any{}
	if text = strings.TrimSpace(text); text != "" {
		body["query"] = text
	}
	if filter != nil {
		body["filter"] = filter
	}

	return c.poster.Do(ctx, http.MethodPost, c.baseURL+"/v1/search", c.headers(token), body)
}

func (c *Client) headers(token string) map[string]string {
	return httpjson.NotionHeaders(token, c.version)
}

// NormalizeID accepts dashed or undashed ids, or a page URL ending in one,
// and returns the dashed form.
func NormalizeID(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if i := strings.IndexAny(candidate, "?#"); i >= 0 {
		candidate = candidate[:i]
	}
	if i := strings.LastIndexAny(candidate, "/-"); i >= 0 && len(candidate)-i-1 == 32 {
		candidate = candidate[i+1:]
	}

	id, err := uuid.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: invalid notion id %q", domain.ErrConfig, raw)
	}
	return id.String(), nil
}
