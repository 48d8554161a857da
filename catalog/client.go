// Package catalog implements the client for the remote movie catalog API and its domain models.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/movira-cli/movira/key"
	"github.com/movira-cli/movira/log"
	"github.com/movira-cli/movira/network"
	"github.com/spf13/viper"
)

// Page is one page of catalog list results.
type Page struct {
	Items      []*Movie
	Number     int
	TotalPages int
}

// Client talks to the catalog API. All methods are safe for concurrent use
// since the underlying HTTP client is shared and stateless.
type Client struct {
	baseURL  string
	http     *http.Client
	pageSize int
}

// NewClient builds a catalog client from the global configuration.
func NewClient() *Client {
	return &Client{
		baseURL:  viper.GetString(key.CatalogBaseURL),
		http:     network.Client,
		pageSize: viper.GetInt(key.CatalogPageSize),
	}
}

// NewClientAt builds a catalog client against an explicit base URL, used by tests.
func NewClientAt(baseURL string) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     network.Client,
		pageSize: viper.GetInt(key.CatalogPageSize),
	}
}

// listResponse is the wire shape shared by every paginated list endpoint.
type listResponse struct {
	Status bool     `json:"status"`
	Items  []*Movie `json:"items"`
	Params struct {
		Pagination struct {
			CurrentPage int `json:"currentPage"`
			TotalPages  int `json:"totalPages"`
		} `json:"pagination"`
	} `json:"params"`
}

// detailResponse is the wire shape of the single-movie detail endpoint.
type detailResponse struct {
	Status   bool      `json:"status"`
	Movie    *Movie    `json:"movie"`
	Episodes []Episode `json:"episodes"`
}

// GetAll retrieves one page of the full catalog, newest first.
func (c *Client) GetAll(ctx context.Context, page int) (*Page, error) {
	return c.list(ctx, "/danh-sach/phim-moi-cap-nhat", url.Values{}, page)
}

// GetByCategory retrieves one page of the catalog filtered to a category.
func (c *Client) GetByCategory(ctx context.Context, categorySlug string, page int) (*Page, error) {
	return c.list(ctx, "/the-loai/"+url.PathEscape(categorySlug), url.Values{}, page)
}

// Search retrieves one page of catalog entries matching a free-text query.
func (c *Client) Search(ctx context.Context, query string, page int) (*Page, error) {
	params := url.Values{}
	params.Set("keyword", query)
	return c.list(ctx, "/tim-kiem", params, page)
}

func (c *Client) list(ctx context.Context, path string, params url.Values, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	params.Set("page", fmt.Sprint(page))
	if c.pageSize > 0 {
		params.Set("limit", fmt.Sprint(c.pageSize))
	}

	var resp listResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	return &Page{
		Items:      resp.Items,
		Number:     page,
		TotalPages: resp.Params.Pagination.TotalPages,
	}, nil
}

// GetDetail retrieves the full record for a movie by its slug, including episodes.
func (c *Client) GetDetail(ctx context.Context, slug string) (*Movie, error) {
	var resp detailResponse
	if err := c.get(ctx, "/phim/"+url.PathEscape(slug), url.Values{}, &resp); err != nil {
		return nil, err
	}

	if resp.Movie == nil {
		return nil, fmt.Errorf("movie %q not found", slug)
	}

	movie := resp.Movie
	movie.Episodes = resp.Episodes
	return movie, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	log.Debugf("catalog request: %s", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read catalog response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse catalog response: %w", err)
	}

	return nil
}
