// Package showtimeclient is the Booking Coordinator's HTTP client for the
// showtime service: the show catalog and the Seat Ledger. Claim and release
// calls carry a bounded timeout; when it expires the outcome is unknown and
// the caller must reconcile, never assume success.
package showtimeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/moonkyuu/cinebook/api"
	"github.com/moonkyuu/cinebook/internal/domain"
)

const defaultTimeout = 3 * time.Second

type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

type Option func(*Client)

// WithTimeout overrides the per-call timeout bounding claim and release calls.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) GetShow(ctx context.Context, id string) (*domain.Show, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var shows []api.Showtime

	// The catalog has no single-show endpoint; the listing is tiny.
	err := c.getJSON(ctx, "/showtimes", &shows)
	if err != nil {
		return nil, err
	}

	for _, show := range shows {
		if show.Id == id {
			return &domain.Show{
				ID:         show.Id,
				Movie:      show.Movie,
				Time:       show.Time,
				Theater:    show.Theater,
				TotalSeats: show.TotalSeats,
			}, nil
		}
	}

	return nil, domain.ErrRecordNotFound
}

func (c *Client) QueryReserved(ctx context.Context, showtimeID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp api.ReservedSeatsResponse

	err := c.getJSON(ctx, "/seats/reserved/"+url.PathEscape(showtimeID), &resp)
	if err != nil {
		return nil, err
	}

	return resp.Reserved, nil
}

func (c *Client) Claim(
	ctx context.Context,
	showtimeID string,
	seats []string,
	claimant string) (domain.ClaimResult, error) {

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(api.ClaimRequest{
		ShowtimeId: showtimeID,
		Seats:      seats,
		Claimant:   claimant,
	})
	if err != nil {
		return domain.ClaimResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/claims", bytes.NewReader(body))
	if err != nil {
		return domain.ClaimResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.ClaimResult{}, fmt.Errorf("claim request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return domain.ClaimResult{Accepted: true}, nil

	case http.StatusConflict:
		var conflict api.ClaimConflictResponse
		if err := json.NewDecoder(resp.Body).Decode(&conflict); err != nil {
			return domain.ClaimResult{}, fmt.Errorf("decode claim conflict: %w", err)
		}
		return domain.ClaimResult{Conflicting: conflict.Conflicting}, nil

	case http.StatusNotFound:
		return domain.ClaimResult{}, domain.ErrRecordNotFound

	default:
		return domain.ClaimResult{}, fmt.Errorf("claim request: unexpected status %d", resp.StatusCode)
	}
}

func (c *Client) ClaimsOf(ctx context.Context, showtimeID, claimant string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var resp api.ClaimedSeatsResponse

	path := "/claims/" + url.PathEscape(showtimeID) + "/" + url.PathEscape(claimant)

	err := c.getJSON(ctx, path, &resp)
	if err != nil {
		return nil, err
	}

	return resp.Seats, nil
}

func (c *Client) Release(ctx context.Context, showtimeID, claimant string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	path := "/claims/" + url.PathEscape(showtimeID) + "/" + url.PathEscape(claimant)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("release request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("release request: unexpected status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrRecordNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

// IsOutcomeUnknown reports whether an error from Claim leaves the claim's
// outcome undetermined (timeout, transport failure) as opposed to a definite
// rejection by the ledger.
func IsOutcomeUnknown(err error) bool {
	if err == nil {
		return false
	}

	return !errors.Is(err, domain.ErrRecordNotFound)
}
