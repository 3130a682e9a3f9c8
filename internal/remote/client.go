// Package remote talks to the tree save/load/list endpoints and the auth
// endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"famtree/pkg/family"
)

// Operation names reported to the MetricsRecorder.
const (
	OpSave     = "save"
	OpLoad     = "load"
	OpList     = "list"
	OpLogin    = "login"
	OpRegister = "register"
	OpVerify   = "verify"
)

// Supported OAuth providers.
const (
	ProviderYandex = "yandex"
	ProviderVK     = "vk"
)

// Endpoints holds the absolute URL of each remote function.
type Endpoints struct {
	Auth string
	Save string
	Load string
	List string
}

// MetricsRecorder observes each remote call.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Client is safe for concurrent use once configured.
type Client struct {
	Endpoints    Endpoints
	HTTPClient   *http.Client
	UserEmail    string
	SessionToken string

	metrics MetricsRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// WithMetrics installs a recorder for every call.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSessionToken attaches an existing session.
func WithSessionToken(token string) Option {
	return func(c *Client) { c.SessionToken = token }
}

// NewClient returns a client for endpoints acting as userEmail.
func NewClient(endpoints Endpoints, userEmail string, opts ...Option) *Client {
	c := &Client{
		Endpoints:  endpoints,
		UserEmail:  userEmail,
		HTTPClient: defaultHTTPClient(),
		metrics:    noopRecorder{},
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// Save posts the tree and returns the id the server stored it under.
func (c *Client) Save(ctx context.Context, req SaveRequest) (id int64, err error) {
	defer c.observe(ctx, OpSave, c.now(), &err)
	if c.Endpoints.Save == "" {
		return 0, fmt.Errorf("%s: %w", OpSave, ErrNotConfigured)
	}
	if req.UserEmail == "" {
		req.UserEmail = c.UserEmail
	}
	if req.Nodes == nil {
		req.Nodes = []family.Node{}
	}
	if req.Edges == nil {
		req.Edges = []family.Edge{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("marshaling request: %w", err)
	}
	resp, err := c.do(ctx, OpSave, http.MethodPost, c.Endpoints.Save, body)
	if err != nil {
		return 0, err
	}
	var out struct {
		TreeID TreeID `json:"tree_id"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return 0, fmt.Errorf("%s: decoding response: %w", OpSave, err)
	}
	if out.TreeID == 0 {
		return 0, &RemoteError{Operation: OpSave, Status: http.StatusOK, Message: "response has no tree_id"}
	}
	c.logger.Debug("tree saved", "tree_id", int64(out.TreeID), "nodes", len(req.Nodes))
	return int64(out.TreeID), nil
}

// Load fetches tree id.
func (c *Client) Load(ctx context.Context, id int64) (tree LoadedTree, err error) {
	defer c.observe(ctx, OpLoad, c.now(), &err)
	if c.Endpoints.Load == "" {
		return LoadedTree{}, fmt.Errorf("%s: %w", OpLoad, ErrNotConfigured)
	}
	q := url.Values{"tree_id": {strconv.FormatInt(id, 10)}}
	if c.UserEmail != "" {
		q.Set("user_email", c.UserEmail)
	}
	resp, err := c.do(ctx, OpLoad, http.MethodGet, withQuery(c.Endpoints.Load, q), nil)
	if err != nil {
		return LoadedTree{}, err
	}
	var out loadResponse
	if err := json.Unmarshal(resp, &out); err != nil {
		return LoadedTree{}, fmt.Errorf("%s: decoding response: %w", OpLoad, err)
	}
	loaded := LoadedTree{
		TreeID:      int64(out.TreeID),
		Title:       out.Title,
		Description: deref(out.Description),
		Tree:        family.Tree{Nodes: out.Nodes, Edges: out.Edges}.Clone(),
		CreatedAt:   deref(out.CreatedAt),
		UpdatedAt:   deref(out.UpdatedAt),
	}
	if loaded.TreeID == 0 {
		loaded.TreeID = id
	}
	return loaded, nil
}

// List returns the trees owned by the client's user.
func (c *Client) List(ctx context.Context) (trees []TreeSummary, err error) {
	defer c.observe(ctx, OpList, c.now(), &err)
	if c.Endpoints.List == "" {
		return nil, fmt.Errorf("%s: %w", OpList, ErrNotConfigured)
	}
	q := url.Values{}
	if c.UserEmail != "" {
		q.Set("user_email", c.UserEmail)
	}
	resp, err := c.do(ctx, OpList, http.MethodGet, withQuery(c.Endpoints.List, q), nil)
	if err != nil {
		return nil, err
	}
	trees, err = decodeSummaries(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", OpList, err)
	}
	return trees, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	return c.auth(ctx, OpLogin, map[string]string{"email": email, "password": password})
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (Session, error) {
	body := map[string]string{"email": email, "password": password}
	if displayName != "" {
		body["display_name"] = displayName
	}
	return c.auth(ctx, OpRegister, body)
}

func (c *Client) auth(ctx context.Context, op string, payload map[string]string) (sess Session, err error) {
	defer c.observe(ctx, op, c.now(), &err)
	if c.Endpoints.Auth == "" {
		return Session{}, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Session{}, fmt.Errorf("marshaling request: %w", err)
	}
	resp, err := c.do(ctx, op, http.MethodPost, withQuery(c.Endpoints.Auth, url.Values{"action": {op}}), body)
	if err != nil {
		return Session{}, err
	}
	var out struct {
		User
		SessionToken string `json:"session_token"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return Session{}, fmt.Errorf("%s: decoding response: %w", op, err)
	}
	if out.SessionToken == "" {
		return Session{}, &RemoteError{Operation: op, Status: http.StatusOK, Message: "response has no session_token"}
	}
	c.SessionToken = out.SessionToken
	return Session{Token: out.SessionToken, User: out.User}, nil
}

// Verify checks the client's session token and returns its user.
func (c *Client) Verify(ctx context.Context) (user User, err error) {
	defer c.observe(ctx, OpVerify, c.now(), &err)
	if c.Endpoints.Auth == "" {
		return User{}, fmt.Errorf("%s: %w", OpVerify, ErrNotConfigured)
	}
	if c.SessionToken == "" {
		return User{}, fmt.Errorf("%s: %w", OpVerify, ErrNoToken)
	}
	resp, err := c.do(ctx, OpVerify, http.MethodGet, withQuery(c.Endpoints.Auth, url.Values{"action": {OpVerify}}), nil)
	if err != nil {
		return User{}, err
	}
	if err := json.Unmarshal(resp, &user); err != nil {
		return User{}, fmt.Errorf("%s: decoding response: %w", OpVerify, err)
	}
	return user, nil
}

// OAuthURL is where a browser is sent to start an OAuth login.
func (c *Client) OAuthURL(provider string) (string, error) {
	switch provider {
	case ProviderYandex, ProviderVK:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	if c.Endpoints.Auth == "" {
		return "", ErrNotConfigured
	}
	return withQuery(c.Endpoints.Auth, url.Values{"provider": {provider}}), nil
}

// CallbackToken extracts session_token from the OAuth callback URL.
func CallbackToken(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse callback url: %w", err)
	}
	token := u.Query().Get("session_token")
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// do performs one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, target string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserEmail != "" {
		req.Header.Set("X-User-Email", c.UserEmail)
	}
	if c.SessionToken != "" {
		req.Header.Set("X-Auth-Token", c.SessionToken)
		req.Header.Set("X-Session-Token", c.SessionToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: reading body: %w", op, ErrConnection, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(op, resp.StatusCode, data)
	}
	return data, nil
}

func parseError(op string, status int, body []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &RemoteError{Operation: op, Status: status, Message: errResp.Error}
	}
	return &RemoteError{Operation: op, Status: status}
}

func (c *Client) observe(ctx context.Context, op string, start time.Time, errp *error) {
	err := *errp
	success := err == nil
	c.metrics.Observe(ctx, op, success, c.now().Sub(start))
	if !success {
		level := slog.LevelWarn
		if errors.Is(err, ErrNotConfigured) {
			level = slog.LevelDebug
		}
		c.logger.Log(ctx, level, "remote call failed", "operation", op, "error", err)
	}
}

func withQuery(base string, q url.Values) string {
	if len(q) == 0 {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	merged := u.Query()
	for k, v := range q {
		merged[k] = v
	}
	u.RawQuery = merged.Encode()
	return u.String()
}
