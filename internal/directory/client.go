// Package directory is the HTTP client for the chat API, used by the CLI as its chat.Directory.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/api/dto"
	"github.com/spec-kit/ticket-chat/internal/chat"
	"github.com/spec-kit/ticket-chat/internal/config"
	"github.com/spec-kit/ticket-chat/internal/domain"
	apperrors "github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

var _ chat.Directory = (*Client)(nil)

// ErrNoCredentials is returned when a protected call is made without email and password configured.
var ErrNoCredentials = errors.New("directory: no credentials configured")

// tokenSkew renews a token slightly before the server would reject it.
const tokenSkew = 30 * time.Second

// Client talks to the /api/v1 endpoints and logs in on demand.
type Client struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewClient builds a client from the CLI configuration.
func NewClient(cfg config.ClientConfig, logger *zap.Logger) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.RequestTimeout()}, logger)
}

// NewClientWithHTTP builds a client around an existing http.Client.
func NewClientWithHTTP(cfg config.ClientConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    cfg.APIURL,
		email:      cfg.Email,
		password:   cfg.Password,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// Register creates an agent account with the configured credentials.
func (c *Client) Register(ctx context.Context) (dto.AgentResponse, error) {
	var out envelope[dto.AgentResponse]
	err := c.send(ctx, http.MethodPost, "/auth/register", dto.RegisterRequest{Email: c.email, Password: c.password}, &out, "")
	return out.Data, err
}

// Login exchanges the configured credentials for an access token.
func (c *Client) Login(ctx context.Context) error {
	_, err := c.login(ctx)
	return err
}

func (c *Client) login(ctx context.Context) (string, error) {
	if c.email == "" || c.password == "" {
		return "", ErrNoCredentials
	}
	var out envelope[dto.AuthResponse]
	if err := c.send(ctx, http.MethodPost, "/auth/login", dto.LoginRequest{Email: c.email, Password: c.password}, &out, ""); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	c.mu.Lock()
	c.token = out.Data.AccessToken
	c.expiresAt = out.Data.ExpiresAt
	c.mu.Unlock()
	c.logger.Debug("logged in", zap.String("email", c.email), zap.Time("expires_at", out.Data.ExpiresAt))
	return out.Data.AccessToken, nil
}

// ListCompanies implements chat.Directory.
func (c *Client) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	var out envelope[[]dto.CompanyResponse]
	if err := c.do(ctx, http.MethodGet, "/api/v1/companies", nil, &out); err != nil {
		return nil, err
	}
	return lo.Map(out.Data, func(r dto.CompanyResponse, _ int) domain.Company { return r.Company() }), nil
}

// ListTickets implements chat.Directory.
func (c *Client) ListTickets(ctx context.Context, companyID string) ([]domain.Ticket, error) {
	var out envelope[[]dto.TicketResponse]
	path := "/api/v1/companies/" + url.PathEscape(companyID) + "/tickets"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return lo.Map(out.Data, func(r dto.TicketResponse, _ int) domain.Ticket { return r.Ticket() }), nil
}

// ListMessages implements chat.Directory.
func (c *Client) ListMessages(ctx context.Context, ticketID string) ([]domain.Message, error) {
	var out envelope[[]dto.MessageResponse]
	path := "/api/v1/tickets/" + url.PathEscape(ticketID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return lo.Map(out.Data, func(r dto.MessageResponse, _ int) domain.Message { return r.Message() }), nil
}

// SendMessage implements chat.Directory.
func (c *Client) SendMessage(ctx context.Context, ticketID, body string, direction domain.Direction) (string, error) {
	var out envelope[dto.CreateMessageResponse]
	path := "/api/v1/tickets/" + url.PathEscape(ticketID) + "/messages"
	req := dto.CreateMessageRequest{Body: body, Direction: direction}
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return "", err
	}
	return out.Data.ID, nil
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !c.now().Add(tokenSkew).Before(c.expiresAt) {
		return ""
	}
	return c.token
}

func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// do sends an authenticated request, logging in when no valid token is held
// and retrying once after a 401.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token := c.currentToken()
	if token == "" {
		var err error
		if token, err = c.login(ctx); err != nil {
			return err
		}
	}
	err := c.send(ctx, method, path, in, out, token)
	if !apperrors.IsCode(err, "UNAUTHORIZED") {
		return err
	}
	c.logger.Debug("token rejected; logging in again", zap.String("path", path))
	c.clearToken()
	if token, err = c.login(ctx); err != nil {
		return err
	}
	return c.send(ctx, method, path, in, out, token)
}

func (c *Client) send(ctx context.Context, method, path string, in, out any, token string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var env errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &env); err != nil || env.Error.Code == "" {
		return apperrors.NewDomainError("REQUEST_FAILED", fmt.Sprintf("unexpected status %d", resp.StatusCode), resp.StatusCode, nil)
	}
	return apperrors.NewDomainError(env.Error.Code, env.Error.Message, resp.StatusCode, env.Error.Details)
}
