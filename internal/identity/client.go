package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matheus3301/chatroom/internal/config"
	"github.com/matheus3301/chatroom/internal/store"
	"go.uber.org/zap"
)

// TokenStore persists the signed-in token across restarts.
type TokenStore interface {
	SaveIdentityToken(t *store.IdentityToken) error
	IdentityToken() (*store.IdentityToken, error)
	ClearIdentityToken() error
}

// Client talks to an Identity Toolkit compatible REST API
// (accounts:signInWithPassword, accounts:signUp, accounts:update).
type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	tokens   TokenStore
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	loaded   bool
	current  *User
	watchers map[int]func(*User)
	nextID   int
}

// NewClient creates a provider client. httpClient may carry a circuit breaker.
func NewClient(httpClient *http.Client, cfg config.IdentityConfig, tokens TokenStore, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	return &Client{
		http:     httpClient,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
		watchers: make(map[int]func(*User)),
	}
}

type authResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// tokenClaims are the ID token fields the client reads. The token comes
// straight from the provider over TLS, so its signature is not checked here.
type tokenClaims struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	var resp authResponse
	err := c.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return c.establish(resp)
}

// Register creates an account and sets its display name.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	var created authResponse
	err := c.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &created)
	if err != nil {
		return nil, err
	}

	var updated authResponse
	err = c.post(ctx, "accounts:update", map[string]any{
		"idToken":           created.IDToken,
		"displayName":       displayName,
		"returnSecureToken": true,
	}, &updated)
	if err != nil {
		return nil, fmt.Errorf("set display name: %w", err)
	}
	if updated.IDToken == "" {
		updated.IDToken = created.IDToken
		updated.RefreshToken = created.RefreshToken
		updated.ExpiresIn = created.ExpiresIn
	}
	if updated.LocalID == "" {
		updated.LocalID = created.LocalID
	}
	if updated.DisplayName == "" {
		updated.DisplayName = displayName
	}
	return c.establish(updated)
}

// SignOut forgets the persisted token and notifies watchers.
func (c *Client) SignOut(_ context.Context) error {
	if err := c.tokens.ClearIdentityToken(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	c.setCurrent(nil)
	return nil
}

// SubscribeAuthState delivers the restored user asynchronously, then every change.
func (c *Client) SubscribeAuthState(fn func(*User)) func() {
	c.mu.Lock()
	c.loadLocked()
	id := c.nextID
	c.nextID++
	c.watchers[id] = fn
	c.mu.Unlock()

	go func() {
		c.mu.Lock()
		_, live := c.watchers[id]
		cur := c.current
		c.mu.Unlock()
		if live {
			fn(cur)
		}
	}()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// Current returns the signed-in user, restoring it from the token store
// on first use.
func (c *Client) Current() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
	return c.current
}

func (c *Client) loadLocked() {
	if c.loaded {
		return
	}
	c.loaded = true
	tok, err := c.tokens.IdentityToken()
	if err != nil {
		c.logger.Warn("identity token unreadable", zap.Error(err))
		return
	}
	if tok == nil {
		return
	}
	if tok.ExpiresAt > 0 && c.now().Unix() >= tok.ExpiresAt {
		c.logger.Info("persisted identity token expired", zap.String("uid", tok.UID))
		return
	}
	c.current = &User{UID: tok.UID, Email: tok.Email, DisplayName: tok.DisplayName}
}

func (c *Client) establish(resp authResponse) (*User, error) {
	u := &User{UID: resp.LocalID, Email: resp.Email, DisplayName: resp.DisplayName}
	expiresAt := int64(0)

	if resp.IDToken != "" {
		claims := &tokenClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(resp.IDToken, claims); err != nil {
			c.logger.Warn("id token not decodable", zap.Error(err))
		} else {
			if u.UID == "" {
				u.UID = claims.UserID
			}
			if u.UID == "" {
				u.UID = claims.Subject
			}
			if u.Email == "" {
				u.Email = claims.Email
			}
			if u.DisplayName == "" {
				u.DisplayName = claims.Name
			}
			if claims.ExpiresAt != nil {
				expiresAt = claims.ExpiresAt.Unix()
			}
		}
	}
	if expiresAt == 0 && resp.ExpiresIn != "" {
		if secs, err := strconv.ParseInt(resp.ExpiresIn, 10, 64); err == nil {
			expiresAt = c.now().Unix() + secs
		}
	}
	if u.UID == "" {
		return nil, errors.New("identity provider returned no user id")
	}

	err := c.tokens.SaveIdentityToken(&store.IdentityToken{
		UID:          u.UID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		c.logger.Warn("identity token not persisted", zap.Error(err))
	}
	c.setCurrent(u)
	return u, nil
}

func (c *Client) setCurrent(u *User) {
	c.mu.Lock()
	c.loaded = true
	c.current = u
	watchers := make([]func(*User), 0, len(c.watchers))
	for _, fn := range c.watchers {
		watchers = append(watchers, fn)
	}
	c.mu.Unlock()

	for _, fn := range watchers {
		fn(u)
	}
}

func (c *Client) post(ctx context.Context, method string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	u := c.endpoint + "/" + method + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&er)
		code, _, _ := strings.Cut(er.Error.Message, " ")
		if code == "" {
			code = http.StatusText(resp.StatusCode)
		}
		return newProviderError(code, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	return nil
}
