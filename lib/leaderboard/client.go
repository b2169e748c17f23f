// Package leaderboard is a client for the leaderboard HTTP API: signed score
// submissions, the top players list and per-player rank.
package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/TecharoHQ/lbsim"
	"github.com/TecharoHQ/lbsim/internal"
	"github.com/TecharoHQ/lbsim/lib/signer"
	"github.com/google/uuid"
)

const (
	maxResponseBytes = 1 << 20
	defaultTimeout   = 10 * time.Second
)

// Endpoint names, used in errors, logs and metric labels.
const (
	EndpointSubmit = "submit"
	EndpointTop    = "top"
	EndpointRank   = "rank"
)

type Options struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api/leaderboard.
	BaseURL string

	// Signer signs submit requests. Required.
	Signer *signer.Signer

	// TopLimit is passed as ?limit= to /top when positive.
	TopLimit int

	// Timeout bounds each request. Ignored when HTTPClient is set.
	Timeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	base     *url.URL
	signer   *signer.Signer
	topLimit int
	http     *http.Client
	logger   *slog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.Signer == nil {
		return nil, ErrNoSigner
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadBaseURL, err)
	}

	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrBadBaseURL, opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:     base,
		signer:   opts.Signer,
		topLimit: opts.TopLimit,
		http:     httpClient,
		logger:   logger,
	}, nil
}

// SubmitScore signs sub and posts it to {base}/submit. Anything but a 2xx
// answer is returned as a *StatusError.
func (c *Client) SubmitScore(ctx context.Context, sub ScoreSubmission) (*Response[SubmitResult], error) {
	body := sub.CanonicalJSON()

	signed, err := c.signer.SignRequest(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: can't sign submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath("submit").String(), bytes.NewReader(signed.Body))
	if err != nil {
		return nil, fmt.Errorf("leaderboard: can't create submit request: %w", err)
	}
	signed.Apply(req)

	raw, err := c.send(req, EndpointSubmit)
	if err != nil {
		return nil, err
	}

	if !raw.ok() {
		return nil, &StatusError{
			Endpoint:   EndpointSubmit,
			StatusCode: raw.statusCode,
			Status:     raw.status,
			Body:       raw.body,
		}
	}

	return decode[SubmitResult](c.logger, raw, EndpointSubmit)
}

// TopPlayers fetches {base}/top. A non-2xx answer is not an error as long as
// the body is JSON; check Response.OK.
func (c *Client) TopPlayers(ctx context.Context) (*Response[TopPlayers], error) {
	u := c.base.JoinPath("top")
	if c.topLimit > 0 {
		q := u.Query()
		q.Set("limit", strconv.Itoa(c.topLimit))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: can't create top request: %w", err)
	}

	raw, err := c.send(req, EndpointTop)
	if err != nil {
		return nil, err
	}

	return decode[TopPlayers](c.logger, raw, EndpointTop)
}

// Rank fetches {base}/rank/{userID}. Like TopPlayers, a non-2xx JSON answer
// is returned rather than treated as an error.
func (c *Client) Rank(ctx context.Context, userID int64) (*Response[Entry], error) {
	u := c.base.JoinPath("rank", strconv.FormatInt(userID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: can't create rank request: %w", err)
	}

	raw, err := c.send(req, EndpointRank)
	if err != nil {
		return nil, err
	}

	return decode[Entry](c.logger, raw, EndpointRank)
}

type rawResponse struct {
	statusCode int
	status     string
	requestID  string
	body       []byte
}

func (r *rawResponse) ok() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

func (c *Client) send(req *http.Request, endpoint string) (*rawResponse, error) {
	requestID := uuid.NewString()
	req.Header.Set(lbsim.HeaderRequestID, requestID)
	req.Header.Set("User-Agent", lbsim.UserAgent())
	req.Header.Set("Accept", "application/json")

	lg := internal.GetRequestLogger(c.logger, req)
	lg.Debug("sending request", "endpoint", endpoint)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("leaderboard: %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: can't read %s response: %w", endpoint, err)
	}

	lg.Debug("got response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(body))

	return &rawResponse{
		statusCode: resp.StatusCode,
		status:     resp.Status,
		requestID:  requestID,
		body:       body,
	}, nil
}

func decode[T any](lg *slog.Logger, raw *rawResponse, endpoint string) (*Response[T], error) {
	if !json.Valid(raw.body) {
		return nil, fmt.Errorf("%w: %s answered %s: %q", ErrNotJSON, endpoint, raw.status, bytes.TrimSpace(raw.body))
	}

	result := &Response[T]{
		StatusCode: raw.statusCode,
		RequestID:  raw.requestID,
		Body:       json.RawMessage(raw.body),
	}

	if !raw.ok() {
		lg.Warn("leaderboard answered with an error", "endpoint", endpoint, "status", raw.statusCode, "request_id", raw.requestID, "body", result.Body)
		return result, nil
	}

	if err := json.Unmarshal(raw.body, &result.Value); err != nil {
		lg.Debug("response does not match the expected shape", "endpoint", endpoint, "err", err)
		return result, nil
	}
	result.Decoded = true

	return result, nil
}
