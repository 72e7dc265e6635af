package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mmcdole/popcorn/internal/domain"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
	DefaultLanguage     = "en-US"

	defaultTimeout = 30 * time.Second
	userAgent      = "Popcorn/1.0"
)

var _ domain.CatalogSource = (*Client)(nil)

// Options configures a Client. Either Token (v4 read access token) or
// APIKey (v3 key) authenticates requests; Token wins when both are set.
type Options struct {
	BaseURL      string
	ImageBaseURL string
	Token        string
	APIKey       string
	Language     string
	Timeout      time.Duration
}

// Client implements domain.CatalogSource over the TMDB REST API
type Client struct {
	baseURL      string
	imageBaseURL string
	token        string
	apiKey       string
	language     string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a new TMDB API client
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ImageBaseURL == "" {
		opts.ImageBaseURL = DefaultImageBaseURL
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		imageBaseURL: opts.ImageBaseURL,
		token:        opts.Token,
		apiKey:       opts.APIKey,
		language:     opts.Language,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger: logger,
	}
}

// PopularMovies returns one page of the popular-movies feed
func (c *Client) PopularMovies(ctx context.Context, page int) (domain.Page, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))

	var resp PopularResponse
	if err := c.getJSON(ctx, "/movie/popular", query, &resp); err != nil {
		return domain.Page{}, err
	}
	return MapPage(resp, c.imageBaseURL), nil
}

// MovieDetail returns the full details of one movie
func (c *Client) MovieDetail(ctx context.Context, movieID int64) (domain.MovieDetail, error) {
	var resp MovieDetails
	path := fmt.Sprintf("/movie/%d", movieID)
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return domain.MovieDetail{}, err
	}
	if resp.ID == 0 {
		resp.ID = movieID
	}
	return MapDetail(resp, c.imageBaseURL), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		c.logger.Error("JSON parse error", "error", err, "path", path, "bodyLen", len(body))
		return &domain.RemoteError{Kind: domain.KindSerialization, Err: err}
	}
	return nil
}

// doRequest performs an authenticated HTTP request.
// Transport failures and non-2xx statuses come back as *domain.RemoteError;
// a cancelled ctx comes back as ctx.Err().
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	if c.language != "" {
		query.Set("language", c.language)
	}
	if c.token == "" && c.apiKey != "" {
		query.Set("api_key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("tmdb request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Error("tmdb request failed", "error", err, "path", path)
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.RemoteError{Kind: domain.KindNetwork, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		_ = json.Unmarshal(body, &apiErr)
		c.logger.Error("tmdb request error", "status", resp.StatusCode, "path", path, "message", apiErr.StatusMessage)

		var cause error
		if apiErr.StatusMessage != "" {
			cause = errors.New(apiErr.StatusMessage)
		}
		return nil, &domain.RemoteError{Kind: domain.KindHTTP, StatusCode: resp.StatusCode, Err: cause}
	}

	return body, nil
}

// classifyTransportError separates "no route to the host" (offline) from
// failures talking to a host that was reached (network).
func classifyTransportError(err error) error {
	kind := domain.KindNetwork

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &dnsErr):
		kind = domain.KindOffline
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETDOWN):
		kind = domain.KindOffline
	case errors.As(err, &opErr) && opErr.Op == "dial" && opErr.Timeout():
		kind = domain.KindOffline
	}

	return &domain.RemoteError{Kind: kind, Err: err}
}
