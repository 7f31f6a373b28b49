package researcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
)

// Retriever is the boundary to the web-research engine: given a query it
// returns fetched-and-read sources. The engine itself lives outside this
// system.
type Retriever interface {
	Search(ctx context.Context, query string) ([]Source, error)
}

// HTTPRetriever talks to a search/scrape service over a simple JSON API.
type HTTPRetriever struct {
	Endpoint string
	Client   *http.Client
}

var _ Retriever = &HTTPRetriever{}

func NewHTTPRetriever(endpoint string) *HTTPRetriever {
	return &HTTPRetriever{
		Endpoint: endpoint,
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type retrieverRequest struct {
	Query string `json:"query"`
}

type retrieverResponse struct {
	Results []Source `json:"results"`
}

func (r *HTTPRetriever) Search(ctx context.Context, query string) ([]Source, error) {
	body, err := json.Marshal(retrieverRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.Endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("retriever request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retriever error: status %d, body: %s", resp.StatusCode, string(respBytes))
	}

	var result retrieverResponse
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return result.Results, nil
}

// CachedRetriever memoizes search results so that overlapping subtopic
// queries within one process do not hit the engine twice.
type CachedRetriever struct {
	inner Retriever
	cache *cache.Cache
}

var _ Retriever = &CachedRetriever{}

func NewCachedRetriever(inner Retriever) *CachedRetriever {
	return &CachedRetriever{
		inner: inner,
		cache: cache.New(30*time.Minute, 10*time.Minute),
	}
}

func (r *CachedRetriever) Search(ctx context.Context, query string) ([]Source, error) {
	if x, found := r.cache.Get(query); found {
		return x.([]Source), nil
	}
	sources, err := r.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	r.cache.Set(query, sources, cache.DefaultExpiration)
	return sources, nil
}
