package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/constants"
	"github.com/kapu/post-reactors/internal/util"
	"github.com/kapu/post-reactors/pkg/errors"
)

// API is the provider boundary used by the launcher and the poller.
type API interface {
	Launch(ctx context.Context, agentID string, args map[string]any) (string, error)
	FetchOutput(ctx context.Context, containerID string) (*FetchOutputResponse, error)
}

type launchRequest struct {
	ID       string         `json:"id"`
	Argument map[string]any `json:"argument"`
}

type launchResponse struct {
	ContainerID string `json:"containerId"`
}

// FetchOutputResponse is the body of containers/fetch-output. Output and Error are kept
// raw because their types vary between job variants.
type FetchOutputResponse struct {
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	Status string          `json:"status"`
}

// ErrorMessage returns the error field as text, or "" when absent.
func (r *FetchOutputResponse) ErrorMessage() string {
	return rawText(r.Error)
}

// HasOutput reports whether the output field carries a value.
func (r *FetchOutputResponse) HasOutput() bool {
	return !isBlank(r.Output)
}

type Client struct {
	http    *resty.Client
	apiKey  string
	breaker *util.CircuitBreaker
	logger  *zap.Logger

	mu          sync.Mutex
	lastFailure errors.Kind
}

type ClientOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewClient(opts ClientOptions, logger *zap.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = constants.APIConfig.PhantomBusterBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = constants.APIConfig.PhantomBusterTimeout
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		apiKey: opts.APIKey,
		breaker: util.NewCircuitBreaker(
			"phantombuster",
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			logger,
		),
		logger: logger,
	}
}

// Breaker exposes the launch circuit state for health reporting.
func (c *Client) Breaker() *util.CircuitBreaker {
	return c.breaker
}

func (c *Client) Launch(ctx context.Context, agentID string, args map[string]any) (string, error) {
	body, err := c.do(ctx, true, func(req *resty.Request) (*resty.Response, error) {
		return req.SetBody(launchRequest{ID: agentID, Argument: args}).Post("/agents/launch")
	})
	if err != nil {
		return "", err
	}

	var resp launchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.NewProviderError(errors.KindProvider, "Invalid launch response", 200, string(body)).WithCause(err)
	}
	if resp.ContainerID == "" {
		return "", errors.NewProviderError(errors.KindProvider, "Launch response has no containerId", 200, string(body))
	}

	c.logger.Info("Provider job launched",
		zap.String("agent_id", agentID),
		zap.String("container_id", resp.ContainerID),
	)
	return resp.ContainerID, nil
}

func (c *Client) FetchOutput(ctx context.Context, containerID string) (*FetchOutputResponse, error) {
	body, err := c.do(ctx, false, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParam("id", containerID).Get("/containers/fetch-output")
	})
	if err != nil {
		return nil, err
	}

	var resp FetchOutputResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewProviderError(errors.KindProvider, "Invalid fetch-output response", 200, string(body)).WithCause(err)
	}
	return &resp, nil
}

// do sends one request. Only launches go through the breaker: polls of jobs that are
// already running must reach the provider whatever state other launches left it in.
func (c *Client) do(ctx context.Context, guarded bool, send func(*resty.Request) (*resty.Response, error)) ([]byte, error) {
	if guarded && !c.breaker.CanExecute() {
		retryAfter := c.breaker.RetryAfter()
		kind := c.openedBy()
		c.logger.Warn("Circuit breaker is open",
			zap.Duration("retry_after", retryAfter),
			zap.String("opened_by", string(kind)),
		)
		err := errors.New(kind, "Provider temporarily unavailable").
			WithDetail(fmt.Sprintf("retry after %s", retryAfter.Round(time.Second))).
			WithContext("retry_after_ms", retryAfter.Milliseconds())
		err.StatusCode = 503
		return nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader(constants.APIConfig.APIKeyHeader, c.apiKey)

	resp, err := send(req)
	if err != nil {
		appErr := ClassifyTransport(err)
		if guarded && appErr.Kind == errors.KindNetwork {
			c.recordFailure(appErr.Kind)
		}
		c.logger.Warn("Provider request failed", zap.Error(err))
		return nil, appErr
	}

	status := resp.StatusCode()
	if status < 400 {
		if guarded {
			c.breaker.RecordSuccess()
		}
		return resp.Body(), nil
	}

	body := string(resp.Body())
	appErr := StatusError(status, body)
	if guarded && status >= 500 {
		c.recordFailure(appErr.Kind)
	}
	c.logger.Warn("Provider returned error status",
		zap.Int("status", status),
		zap.String("url", resp.Request.URL),
		zap.String("body", errors.Truncate(body, 200)),
	)
	return nil, appErr
}

func (c *Client) recordFailure(kind errors.Kind) {
	c.mu.Lock()
	c.lastFailure = kind
	c.mu.Unlock()
	c.breaker.RecordFailure(0)
}

// openedBy is the kind of the failure that last counted against the breaker.
func (c *Client) openedBy() errors.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastFailure == "" {
		return errors.KindProvider
	}
	return c.lastFailure
}

// rawText renders a raw JSON value as plain text. Strings are unquoted, objects with a
// message field yield that message.
func rawText(raw json.RawMessage) string {
	if isBlank(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		if obj.Error != "" {
			return obj.Error
		}
	}
	return string(bytes.TrimSpace(raw))
}

// isBlank treats missing, null, false and "" as no value.
func isBlank(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "false":
		return true
	}
	return false
}
