// Package catalog fetches trivia content from an external clue service.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cluegrid/cluegrid/internal/game"
)

// Client talks to the clue catalog HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// NewClient builds a catalog client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: make(map[string]string),
	}
}

// SetHeader sets a header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetTimeout overrides the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("catalog returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return responseBody, nil
}

type categoryResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Clues []struct {
		ID       string `json:"id"`
		Answer   string `json:"answer"`
		Question string `json:"question"`
	} `json:"clues"`
}

// FetchRandomCategories retrieves count categories with cluesPerCategory
// clues each. Categories that come back short on clues are dropped and
// refetched, up to a bounded number of rounds.
func (c *Client) FetchRandomCategories(ctx context.Context, count, cluesPerCategory int) ([]game.CatalogCategory, error) {
	const maxRounds = 3

	cats := make([]game.CatalogCategory, 0, count)
	for round := 0; round < maxRounds && len(cats) < count; round++ {
		batch, err := c.fetchBatch(ctx, count-len(cats), cluesPerCategory)
		if err != nil {
			return nil, err
		}
		cats = append(cats, batch...)
	}
	if len(cats) < count {
		return nil, fmt.Errorf("catalog returned %d usable categories, need %d", len(cats), count)
	}
	return cats[:count], nil
}

func (c *Client) fetchBatch(ctx context.Context, count, cluesPerCategory int) ([]game.CatalogCategory, error) {
	endpoint := fmt.Sprintf("/categories/random?count=%d&clues=%d", count, cluesPerCategory)
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var raw []categoryResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	cats := make([]game.CatalogCategory, 0, len(raw))
	for _, rc := range raw {
		if len(rc.Clues) < cluesPerCategory {
			log.Warn().
				Str("category", rc.Title).
				Int("clues", len(rc.Clues)).
				Msg("category short on clues, skipping")
			continue
		}
		cat, err := convertCategory(rc, cluesPerCategory)
		if err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

func convertCategory(rc categoryResponse, cluesPerCategory int) (game.CatalogCategory, error) {
	catID, err := uuid.Parse(rc.ID)
	if err != nil {
		return game.CatalogCategory{}, fmt.Errorf("parse category id %q: %w", rc.ID, err)
	}
	cat := game.CatalogCategory{
		ID:    catID,
		Title: rc.Title,
		Clues: make([]game.CatalogClue, 0, cluesPerCategory),
	}
	for _, rcl := range rc.Clues[:cluesPerCategory] {
		clueID, err := uuid.Parse(rcl.ID)
		if err != nil {
			return game.CatalogCategory{}, fmt.Errorf("parse clue id %q: %w", rcl.ID, err)
		}
		cat.Clues = append(cat.Clues, game.CatalogClue{
			ID:       clueID,
			Answer:   rcl.Answer,
			Question: rcl.Question,
		})
	}
	return cat, nil
}
