package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dialtone/callcenter/backend/internal/types"
	"github.com/rs/zerolog"
)

// HTTPClient calls a remote conversation service over JSON/HTTP.
type HTTPClient struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
	logger   zerolog.Logger
}

// NewHTTPClient creates a client for the configured endpoint.
func NewHTTPClient(endpoint string, timeout time.Duration, logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "conversation_client").Logger(),
	}
}

type generateRequest struct {
	Department types.Department `json:"department"`
	Transcript []types.Turn     `json:"transcript"`
}

// GenerateReply posts the transcript and maps transport failures onto
// the engine's error taxonomy: deadline hits become
// ErrConversationTimeout, everything else ErrUpstreamUnavailable.
func (c *HTTPClient) GenerateReply(ctx context.Context, dept types.Department, transcript []types.Turn) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Department: dept, Transcript: transcript})
	if err != nil {
		return Reply{}, fmt.Errorf("failed to marshal transcript: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn().Str("department", string(dept)).Msg("conversation capability timed out")
			return Reply{}, fmt.Errorf("%w: %s", types.ErrConversationTimeout, c.endpoint)
		}
		c.logger.Warn().Err(err).Str("department", string(dept)).Msg("conversation capability unreachable")
		return Reply{}, fmt.Errorf("%w: %v", types.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("conversation capability returned error status")
		return Reply{}, fmt.Errorf("%w: status %d", types.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var reply Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("%w: invalid response: %v", types.ErrUpstreamUnavailable, err)
	}

	if reply.QualityScore < 0 || reply.QualityScore > 5 {
		return Reply{}, fmt.Errorf("%w: quality score %d out of range", types.ErrUpstreamUnavailable, reply.QualityScore)
	}

	return reply, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
