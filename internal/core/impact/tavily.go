package impact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lueurxax/news-radar/internal/core/llm"
)

const (
	tavilyEndpoint = "https://api.tavily.com/search"
	tavilyTimeout  = 20 * time.Second
)

// Searcher retrieves external precedent snippets for a story.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]llm.ImpactContext, error)
}

type tavilyClient struct {
	apiKey string
	http   *http.Client
}

func newTavily(apiKey string) *tavilyClient {
	return &tavilyClient{
		apiKey: apiKey,
		http:   &http.Client{Timeout: tavilyTimeout},
	}
}

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (c *tavilyClient) Search(ctx context.Context, query string, max int) ([]llm.ImpactContext, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:       "business impact precedent: " + query,
		SearchDepth: "basic",
		MaxResults:  max,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // body is only used for the error message

		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, payload)
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	contexts := make([]llm.ImpactContext, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		contexts = append(contexts, llm.ImpactContext{
			Title:   r.Title,
			Snippet: r.Content,
			URL:     r.URL,
		})
	}

	return contexts, nil
}
