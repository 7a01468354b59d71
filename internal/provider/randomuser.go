// Package provider implements the remote user-record provider over the
// randomuser.me wire contract.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"facets-go/internal/facet"
)

// Client fetches a batch of raw user records over HTTP, assigns each
// record a fresh stable identifier, and derives the distinct facet-value
// vocabulary observed across the batch.
type Client struct {
	baseURL    string
	results    int
	httpClient *http.Client
	idgen      facet.IDGenerator
}

// NewClient creates a Client for the given endpoint requesting batches of
// the given size.
func NewClient(baseURL string, results int, idgen facet.IDGenerator) *Client {
	return &Client{
		baseURL:    baseURL,
		results:    results,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		idgen:      idgen,
	}
}

// apiUser is the provider's wire shape for one record.
type apiUser struct {
	Gender string `json:"gender"`
	Name   struct {
		Title string `json:"title"`
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Nat string `json:"nat"`
}

type apiResponse struct {
	Results []apiUser `json:"results"`
}

// Fetch requests one batch from the provider and returns it with
// identifiers assigned and vocabulary derived.
func (c *Client) Fetch(ctx context.Context) (*facet.Batch, error) {
	reqURL, err := c.buildURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding provider response: %w", err)
	}

	users := make([]facet.User, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		users = append(users, facet.User{
			ID:     c.idgen.New(),
			Name:   facet.Name{First: r.Name.First, Last: r.Name.Last},
			Gender: r.Gender,
			Nat:    r.Nat,
		})
	}

	return &facet.Batch{
		Users:      users,
		Vocabulary: facet.DeriveVocabulary(users),
	}, nil
}

func (c *Client) buildURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing provider url: %w", err)
	}
	q := u.Query()
	q.Set("results", strconv.Itoa(c.results))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Compile-time check that Client implements facet.Provider
var _ facet.Provider = (*Client)(nil)
