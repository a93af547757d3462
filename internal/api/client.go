// Package api is the HTTP client for the VetControl clinic backend. The
// backend speaks Spanish on the wire; this package translates to and from
// the local model types at the boundary.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"
)

// ErrSessionExpired is returned when the backend rejects our token. Callers
// surface it to the UI so the owner can re-enter credentials.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Config holds backend connection settings.
type Config struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration
}

// Client talks to the clinic backend. It logs in lazily, caches the JWT and
// re-authenticates when the token nears expiry. Safe for concurrent use.
type Client struct {
	baseURL  string
	email    string
	password string
	http     *http.Client
	logger   *slog.Logger

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		email:    cfg.Email,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With("component", "api"),
	}
}

// Login authenticates against the backend and caches the session token.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return fmt.Errorf("marshal login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if out.Token == "" {
		return fmt.Errorf("login response missing token")
	}

	c.mu.Lock()
	c.token = out.Token
	c.tokenExp = tokenExpiry(out.Token)
	c.mu.Unlock()

	c.logger.Debug("logged in", "expires", c.tokenExp)
	return nil
}

// tokenExpiry extracts the exp claim without verifying the signature; the
// companion only needs it to know when to re-authenticate. Returns zero when
// the token carries no usable expiry.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// ensureSession logs in if no token is cached or the cached one is about to
// expire.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	valid := c.token != "" && (c.tokenExp.IsZero() || time.Until(c.tokenExp) > 30*time.Second)
	c.mu.Unlock()

	if valid {
		return nil
	}
	return c.Login(ctx)
}

// do performs an authenticated request. GETs are retried with fibonacci
// backoff on network errors and 5xx responses; mutating requests run once.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	attempt := func(ctx context.Context, markRetryable bool) error {
		wrapRetry := func(err error) error {
			if markRetryable {
				return retry.RetryableError(err)
			}
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		c.mu.Lock()
		req.Header.Set("Authorization", "Bearer "+c.token)
		c.mu.Unlock()

		resp, err := c.http.Do(req)
		if err != nil {
			return wrapRetry(fmt.Errorf("%s %s: %w", method, path, err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			return fmt.Errorf("%s %s: %w", method, path, ErrSessionExpired)
		case resp.StatusCode >= 500:
			return wrapRetry(readAPIError(resp))
		case resp.StatusCode >= 400:
			return readAPIError(resp)
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
		return nil
	}

	if method == http.MethodGet {
		backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))
		return retry.Do(ctx, backoff, func(ctx context.Context) error {
			return attempt(ctx, true)
		})
	}

	// Non-idempotent: a single attempt, no retry.
	return attempt(ctx, false)
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(data) > 0 {
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if jerr := json.Unmarshal(data, &body); jerr == nil {
			if body.Message != "" {
				apiErr.Message = body.Message
			} else {
				apiErr.Message = body.Error
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// Profile is the authenticated owner's account record.
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type wireProfile struct {
	ID        json.Number `json:"id_usuario"`
	Nombre    string      `json:"nombre"`
	Apellidos string      `json:"apellidos"`
	Email     string      `json:"email"`
	Telefono  string      `json:"telefono"`
	Direccion string      `json:"direccion"`
}

// GetProfile fetches the owner's account record.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var w wireProfile
	if err := c.do(ctx, http.MethodGet, "/usuarios/profile", nil, &w); err != nil {
		return nil, err
	}
	return &Profile{
		ID:        w.ID.String(),
		FirstName: w.Nombre,
		LastName:  w.Apellidos,
		Email:     w.Email,
		Phone:     w.Telefono,
		Address:   w.Direccion,
	}, nil
}
