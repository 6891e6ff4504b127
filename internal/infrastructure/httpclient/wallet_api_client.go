package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"wallet_client/internal/app/port"
	"wallet_client/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	pathPinCheck  = "/pin/check"
	pathPinCreate = "/pin/create"
	pathPinVerify = "/pin/verify"
	pathWallet    = "/wallet"
	pathSend      = "/wallet/send"
)

// Options configure the wallet service client.
type Options struct {
	BaseURL    string
	AuthToken  string
	Timeout    time.Duration
	RateLimit  int
	BurstLimit int
}

// WalletAPIClient talks to the remote wallet service over REST.
type WalletAPIClient struct {
	client  *fasthttp.Client
	baseURL string
	token   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewWalletAPIClient creates a new instance of WalletAPIClient.
func NewWalletAPIClient(opts Options, logger *zap.Logger) *WalletAPIClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.BurstLimit
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletAPIClient{
		client:  &fasthttp.Client{Name: "wallet_client"},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		token:   opts.AuthToken,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.Named("WalletAPIClient"),
	}
}

// HasPin implements port.WalletAPI.
func (c *WalletAPIClient) HasPin(ctx context.Context) (bool, error) {
	status, raw, err := c.do(ctx, fasthttp.MethodGet, pathPinCheck, nil)
	if err != nil {
		return false, err
	}
	data, env, err := unwrap(status, raw)
	if err != nil {
		return false, err
	}
	if status != fasthttp.StatusOK {
		return false, apiError(status, env, raw)
	}
	var out pinCheckResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return false, fmt.Errorf("failed to decode pin check response: %w", err)
	}
	return out.HasPin, nil
}

// CreatePin implements port.WalletAPI.
func (c *WalletAPIClient) CreatePin(ctx context.Context, pin string) error {
	status, raw, err := c.do(ctx, fasthttp.MethodPost, pathPinCreate, pinRequest{Pin: pin})
	if err != nil {
		return err
	}
	_, env, err := unwrap(status, raw)
	if err != nil {
		return err
	}
	if !isSuccess(status, env) {
		return apiError(status, env, raw)
	}
	c.logger.Info("Transaction PIN created")
	return nil
}

// VerifyPin implements port.WalletAPI. A 4xx answer is a rejection, not an error.
func (c *WalletAPIClient) VerifyPin(ctx context.Context, pin string) (entity.PinVerification, error) {
	status, raw, err := c.do(ctx, fasthttp.MethodPost, pathPinVerify, pinRequest{Pin: pin})
	if err != nil {
		return entity.PinVerification{}, err
	}
	_, env, err := unwrap(status, raw)
	if err != nil {
		return entity.PinVerification{}, err
	}
	if status >= fasthttp.StatusInternalServerError {
		return entity.PinVerification{}, apiError(status, env, raw)
	}
	res := entity.PinVerification{Success: isSuccess(status, env), Message: firstMessage(env)}
	if !res.Success {
		c.logger.Warn("PIN verification rejected", zap.Int("statusCode", status), zap.String("message", res.Message))
	}
	return res, nil
}

// FetchWallet implements port.WalletAPI.
func (c *WalletAPIClient) FetchWallet(ctx context.Context) (entity.WalletState, error) {
	status, raw, err := c.do(ctx, fasthttp.MethodGet, pathWallet, nil)
	if err != nil {
		return entity.WalletState{}, err
	}
	data, env, err := unwrap(status, raw)
	if err != nil {
		return entity.WalletState{}, err
	}
	if !isSuccess(status, env) {
		return entity.WalletState{}, apiError(status, env, raw)
	}
	var state entity.WalletState
	if err := json.Unmarshal(data, &state); err != nil {
		return entity.WalletState{}, fmt.Errorf("failed to decode wallet response: %w", err)
	}
	c.logger.Debug("Fetched wallet state", zap.Int("balancesBytes", len(state.WalletBalances)), zap.Int("currencies", len(state.WalletAddresses)))
	return state, nil
}

// SendToken implements port.WalletAPI.
func (c *WalletAPIClient) SendToken(ctx context.Context, sendReq entity.SendRequest) (entity.SendReceipt, error) {
	status, raw, err := c.do(ctx, fasthttp.MethodPost, pathSend, sendReq)
	if err != nil {
		return entity.SendReceipt{}, err
	}
	data, env, err := unwrap(status, raw)
	if err != nil {
		return entity.SendReceipt{}, err
	}
	if !isSuccess(status, env) {
		return entity.SendReceipt{}, apiError(status, env, raw)
	}
	var receipt entity.SendReceipt
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &receipt); err != nil {
			c.logger.Warn("Send accepted but receipt is unreadable, using local values", zap.Error(err))
			receipt = entity.SendReceipt{}
		}
	}
	c.logger.Info("Withdrawal submitted",
		zap.String("currency", sendReq.Currency),
		zap.String("network", sendReq.Network),
		zap.String("amount", sendReq.Amount),
		zap.String("txHash", receipt.TxHash))
	return receipt, nil
}

// do executes one request and returns the status and a copy of the body.
func (c *WalletAPIClient) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("%w: rate limiter: %v", entity.ErrNetwork, err)
	}

	requestURL := c.baseURL + path
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(method)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if c.token != "" {
		req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+c.token)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request body for %s: %w", path, err)
		}
		req.SetBodyRaw(payload)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	c.logger.Debug("Requesting wallet service", zap.String("method", method), zap.String("path", path))

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Error("Failed to execute request to wallet service", zap.String("url", requestURL), zap.Error(err))
		return 0, nil, fmt.Errorf("%w: request to %s failed: %v", entity.ErrNetwork, path, err)
	}

	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	if resp.StatusCode() >= fasthttp.StatusBadRequest {
		c.logger.Warn("Wallet service request failed",
			zap.String("path", path),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", out))
	}
	return resp.StatusCode(), out, nil
}

// unwrap decodes the envelope and returns its data, or the whole body when there is none.
// Error bodies that are not JSON are tolerated; apiError falls back to the status text.
func unwrap(status int, raw []byte) ([]byte, envelope, error) {
	var env envelope
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, env, nil
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		if status >= fasthttp.StatusBadRequest {
			return nil, envelope{Message: string(trimmed)}, nil
		}
		return nil, env, fmt.Errorf("failed to decode wallet service response: %w", err)
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		return env.Data, env, nil
	}
	return trimmed, env, nil
}

func isSuccess(status int, env envelope) bool {
	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		return false
	}
	return env.Success == nil || *env.Success
}

func firstMessage(env envelope) string {
	if env.Message != "" {
		return env.Message
	}
	return env.Error
}

func apiError(status int, env envelope, raw []byte) *entity.APIError {
	msg := firstMessage(env)
	if msg == "" {
		msg = fasthttp.StatusMessage(status)
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return &entity.APIError{StatusCode: status, Message: msg}
}

var _ port.WalletAPI = (*WalletAPIClient)(nil)
