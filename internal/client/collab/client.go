// Package collab is a Go client of the collaboration server: the document
// inspection API and websocket sessions in both protocols.
package collab

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/pkg/api"
)

// ErrSessionClosed returned by operations on a closed session
var ErrSessionClosed = errors.New("session closed")

// ErrNotFound returned when the server has no record for the key
var ErrNotFound = errors.New("document not found")

// Client представляет клиент сервера совместного редактирования
type Client struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	baseURL    string
	token      string
	identity   models.Identity
}

// Option настраивает Client
type Option func(*Client)

// WithToken задает grant gatekeeper'а
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithIdentity задает identity для серверов без gatekeeper secret
func WithIdentity(identity models.Identity) Option {
	return func(c *Client) {
		c.identity = identity
	}
}

// WithHTTPClient подменяет HTTP клиент
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient создает новый клиент; baseURL вида http://host:port
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetDocument возвращает снимок документа
func (c *Client) GetDocument(ctx context.Context, key models.DocumentKey) (*api.DocumentResponse, error) {
	var resp api.DocumentResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/documents/"+key.String(), &resp); err != nil {
		return nil, fmt.Errorf("get document request failed: %w", err)
	}
	return &resp, nil
}

// Health возвращает состояние сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", &resp); err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Message)
		}
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// authorize добавляет grant или заголовки identity
func (c *Client) authorize(h http.Header) {
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
		return
	}
	if c.identity.UserID != "" {
		h.Set(api.HeaderUserID, c.identity.UserID)
	}
	if c.identity.UserName != "" {
		h.Set(api.HeaderUserName, base64.StdEncoding.EncodeToString([]byte(c.identity.UserName)))
	}
	if c.identity.UserImage != "" {
		h.Set(api.HeaderUserImage, url.PathEscape(c.identity.UserImage))
	}
}

// dial открывает websocket на /ws/{key}
func (c *Client) dial(ctx context.Context, key models.DocumentKey, header http.Header) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + key.String()

	if header == nil {
		header = http.Header{}
	}
	c.authorize(header)

	ws, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to open session (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return ws, nil
}

// CloseError возвращает код закрытия, которым сервер завершил сессию
func CloseError(err error) (int, bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return 0, false
}
