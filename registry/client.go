package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/offsite-backup-provisioning/interfaces"
)

// SearchResponse is the body returned by the registry search endpoint.
type SearchResponse struct {
	Total int            `json:"total"`
	Start int            `json:"start"`
	Rows  []NodeDocument `json:"rows"`
}

// HTTPRegistry implements NodeQuery against a registry search endpoint:
//
//	GET {BaseURL}/search/node?q={query}
type HTTPRegistry struct {
	// BaseURL is the registry API root, without a trailing slash
	BaseURL string

	// Token is sent as a bearer token when set
	Token string

	client *http.Client
	log    *slog.Logger
}

// NewHTTPRegistry creates a search client for the registry at baseURL.
func NewHTTPRegistry(baseURL, token string, log *slog.Logger) *HTTPRegistry {
	return &HTTPRegistry{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// Search implements interfaces.NodeQuery.
// Matching happens server-side; rows are returned in response order.
func (r *HTTPRegistry) Search(ctx context.Context, query string) ([]interfaces.Node, error) {
	if _, err := ParseQuery(query); err != nil {
		return nil, err
	}

	start := time.Now()
	searchURL := fmt.Sprintf("%s/search/node?q=%s", r.BaseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Error("Failed to request registry search", slog.String("url", searchURL), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return nil, fmt.Errorf("registry search returned non-200 response: %d", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: registry search returned error %d: %s", interfaces.ErrRegistryUnavailable, resp.StatusCode, string(bodyBytes))
		}
		return nil, fmt.Errorf("registry search returned error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not parse registry search response: %w", err)
	}

	nodes := make([]interfaces.Node, 0, len(parsed.Rows))
	for _, row := range parsed.Rows {
		nodes = append(nodes, row.Node())
	}

	r.log.Debug("Searched registry",
		slog.String("query", query),
		slog.Int("matches", len(nodes)),
		slog.Duration("duration", time.Since(start)))

	return nodes, nil
}
