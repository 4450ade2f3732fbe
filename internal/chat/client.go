package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Makepad-fr/deskview/internal/model"
)

const (
	DefaultTimeout = 60 * time.Second

	// NoItemsAnswer is returned without calling the model when the desk is empty.
	NoItemsAnswer = "I don't see any items yet."

	quotaMessage  = "API quota exceeded or unavailable. Check billing or use another API key."
	badKeyMessage = "API key invalid or missing. Check the key file or OPENAI_API_KEY."
)

var (
	// ErrExternalCall marks failures of the model call. The error text is
	// meant to be shown to the user as the answer.
	ErrExternalCall = errors.New("external call failed")

	ErrEmptyQuestion = errors.New("question is empty")
)

// Completer sends one system/user exchange to a model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// CallError is returned by Ask when the completer fails.
type CallError struct {
	Message string
	Err     error
}

func (e *CallError) Error() string { return e.Message }
func (e *CallError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrExternalCall) hold for every CallError.
func (e *CallError) Is(target error) bool { return target == ErrExternalCall }

// Client asks questions about the desk. Calls are bounded by a timeout and
// paced by a limiter so a held-down key cannot flood the API.
type Client struct {
	completer Completer
	timeout   time.Duration
	limiter   *rate.Limiter
	log       *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient wraps a completer. Defaults: 60s timeout, one call per second
// with a burst of three.
func NewClient(completer Completer, opts ...ClientOption) *Client {
	c := &Client{
		completer: completer,
		timeout:   DefaultTimeout,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 3),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask answers question using items as context. With no items it answers
// NoItemsAnswer locally. Model failures come back as *CallError.
func (c *Client) Ask(ctx context.Context, question string, items []model.Item) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	if len(items) == 0 {
		return NoItemsAnswer, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &CallError{Message: friendlyError(err, c.timeout), Err: err}
	}

	msgs := BuildMessages(question, items)
	start := time.Now()
	answer, err := c.completer.Complete(ctx, msgs.System, msgs.User)
	if err != nil {
		c.log.Warn("chat call failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", &CallError{Message: friendlyError(err, c.timeout), Err: err}
	}
	c.log.Debug("chat call done", zap.Duration("elapsed", time.Since(start)), zap.Int("items", len(items)))
	return strings.TrimSpace(answer), nil
}

func friendlyError(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("No answer within %s. Try again later.", timeout)
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "insufficient_quota"), strings.Contains(lower, "quota"):
		return quotaMessage
	case strings.Contains(lower, "status code: 401"), strings.Contains(lower, "invalid_api_key"):
		return badKeyMessage
	}
	return msg
}
