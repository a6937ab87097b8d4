// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cms reads published blog posts from a Notion database.
//
// Notion is the authoring surface: posts are pages in one database with
// Title, Slug, Excerpt, Category, Status, and Published Date properties.
// Only pages with Status "Published" are served, newest first. Missing
// slugs are derived from the title.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Notion API endpoint.
	DefaultBaseURL = "https://api.notion.com/v1"

	// notionVersion pins the API schema.
	notionVersion = "2022-06-28"

	// DefaultTimeout bounds each Notion request.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps Notion response bodies.
	maxResponseSize = 10 * 1024 * 1024
)

// Post is one published blog post.
type Post struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Excerpt       string `json:"excerpt"`
	PublishedDate string `json:"published_date"`
	Category      string `json:"category"`
	Content       string `json:"content"`
}

// Client fetches posts from the Notion API.
type Client struct {
	apiKey     string
	databaseID string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Notion client for the given integration token and
// database.
func NewClient(apiKey, databaseID string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		databaseID: databaseID,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithBaseURL sets a custom base URL. Used by tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// IsConfigured returns true when both the token and database are set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != "" && c.databaseID != ""
}

// =============================================================================
// NOTION WIRE TYPES
// =============================================================================

type richText struct {
	PlainText string `json:"plain_text"`
}

type pageProperties struct {
	Title *struct {
		Title []richText `json:"title"`
	} `json:"Title"`
	Slug *struct {
		RichText []richText `json:"rich_text"`
	} `json:"Slug"`
	Excerpt *struct {
		RichText []richText `json:"rich_text"`
	} `json:"Excerpt"`
	Category *struct {
		Select *struct {
			Name string `json:"name"`
		} `json:"select"`
	} `json:"Category"`
	PublishedDate *struct {
		Date *struct {
			Start string `json:"start"`
		} `json:"date"`
	} `json:"Published Date"`
}

type queryResponse struct {
	Results []struct {
		ID         string         `json:"id"`
		Properties pageProperties `json:"properties"`
	} `json:"results"`
}

type blocksResponse struct {
	Results []struct {
		Type      string `json:"type"`
		Paragraph *struct {
			RichText []richText `json:"rich_text"`
		} `json:"paragraph"`
	} `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

// =============================================================================
// QUERIES
// =============================================================================

// Posts returns all published posts, newest first.
func (c *Client) Posts(ctx context.Context) ([]Post, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("notion client not configured")
	}

	query := map[string]any{
		"filter": map[string]any{
			"property": "Status",
			"select":   map[string]any{"equals": "Published"},
		},
		"sorts": []map[string]any{
			{"property": "Published Date", "direction": "descending"},
		},
	}

	var resp queryResponse
	url := fmt.Sprintf("%s/databases/%s/query", c.baseURL, c.databaseID)
	if err := c.do(ctx, http.MethodPost, url, query, &resp); err != nil {
		return nil, fmt.Errorf("failed to query posts database: %w", err)
	}

	posts := make([]Post, 0, len(resp.Results))
	for _, page := range resp.Results {
		p := Post{ID: page.ID}
		p.Title = firstPlainText(pageTitle(page.Properties))
		if p.Title == "" {
			p.Title = "Untitled"
		}
		if page.Properties.Slug != nil {
			p.Slug = firstPlainText(page.Properties.Slug.RichText)
		}
		if p.Slug == "" {
			p.Slug = Slugify(p.Title)
		}
		if page.Properties.Excerpt != nil {
			p.Excerpt = firstPlainText(page.Properties.Excerpt.RichText)
		}
		if page.Properties.Category != nil && page.Properties.Category.Select != nil {
			p.Category = page.Properties.Category.Select.Name
		}
		if p.Category == "" {
			p.Category = "Uncategorized"
		}
		if page.Properties.PublishedDate != nil && page.Properties.PublishedDate.Date != nil {
			p.PublishedDate = page.Properties.PublishedDate.Date.Start
		}

		content, err := c.pageContent(ctx, page.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch content for %s: %w", p.Slug, err)
		}
		p.Content = content

		posts = append(posts, p)
	}
	return posts, nil
}

// PostBySlug returns the post with the given slug, or nil when absent.
func (c *Client) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	posts, err := c.Posts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].Slug == slug {
			return &posts[i], nil
		}
	}
	return nil, nil
}

// PostsByCategory returns posts matching the category, case-insensitively.
func (c *Client) PostsByCategory(ctx context.Context, category string) ([]Post, error) {
	posts, err := c.Posts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

// pageContent joins the page's paragraph blocks with blank lines, following
// block pagination to the end.
func (c *Client) pageContent(ctx context.Context, pageID string) (string, error) {
	var paragraphs []string
	cursor := ""

	for {
		url := fmt.Sprintf("%s/blocks/%s/children?page_size=100", c.baseURL, pageID)
		if cursor != "" {
			url += "&start_cursor=" + cursor
		}

		var resp blocksResponse
		if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
			return "", err
		}

		for _, block := range resp.Results {
			if block.Type != "paragraph" || block.Paragraph == nil {
				continue
			}
			var sb strings.Builder
			for _, rt := range block.Paragraph.RichText {
				sb.WriteString(rt.PlainText)
			}
			paragraphs = append(paragraphs, sb.String())
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return strings.Join(paragraphs, "\n\n"), nil
}

// do performs one Notion API request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", notionVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notion API error (HTTP %d): %s", resp.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the title and replaces non-alphanumeric runs with
// single dashes.
func Slugify(title string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

func firstPlainText(texts []richText) string {
	if len(texts) == 0 {
		return ""
	}
	return texts[0].PlainText
}

func pageTitle(props pageProperties) []richText {
	if props.Title == nil {
		return nil
	}
	return props.Title.Title
}
