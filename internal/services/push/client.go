package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/logger"
	"github.com/taskping/taskping/internal/queue"
)

// DefaultTimeout bounds one delivery attempt.
const DefaultTimeout = 10 * time.Second

// ErrTokenGone is returned when the push service reports the device token
// is no longer valid. Callers should prune the subscription.
var ErrTokenGone = errors.New("push token no longer valid")

// Message is the payload sent to the push endpoint for one device.
type Message struct {
	Token   string               `json:"token"`
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Tag     string               `json:"tag,omitempty"`
	Actions []queue.ActionButton `json:"actions,omitempty"`
	Data    map[string]string    `json:"data,omitempty"`
}

// Sender delivers one message to one device token.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Client posts messages to an FCM-style HTTP push endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Sender = (*Client)(nil)

func NewClient(endpoint, apiKey string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log,
	}
}

// Send delivers msg. Invalid-token responses map to ErrTokenGone; other
// non-2xx responses are returned as errors with the status code.
func (c *Client) Send(ctx context.Context, msg *Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Debug("push_delivered",
			zap.String("token", logger.SanitizePushToken(msg.Token)),
			zap.String("tag", msg.Tag))
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w (status %d)", ErrTokenGone, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push endpoint returned %d: %s", resp.StatusCode, body)
	}
}
