package nms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cwmauze/genesys-waypoint-tools/internal/config"
	"github.com/cwmauze/genesys-waypoint-tools/internal/domain"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMissingCredentials is returned when the client ID or secret is unset.
var ErrMissingCredentials = errors.New("nms: client credentials not configured")

// AuthError is returned when the notice service rejects the credentials or
// the bearer token.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("nms: authentication failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("nms: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Client talks to the NOTAM Management Service.
type Client struct {
	creds        clientcredentials.Config
	notamURL     string
	authTimeout  time.Duration
	queryTimeout time.Duration
	httpClient   *http.Client
	logger       *slog.Logger

	token *oauth2.Token
}

// NewClient creates a notice service client. It returns ErrMissingCredentials
// when either credential is empty.
func NewClient(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if !cfg.NMSEnabled() {
		return nil, ErrMissingCredentials
	}
	return &Client{
		creds: clientcredentials.Config{
			ClientID:     cfg.NMSClientID,
			ClientSecret: cfg.NMSClientSecret,
			TokenURL:     cfg.NMSAuthURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		notamURL:     cfg.NMSNotamURL,
		authTimeout:  cfg.NMSAuthTimeout,
		queryTimeout: cfg.NMSQueryTimeout,
		httpClient:   &http.Client{},
		logger:       logger,
	}, nil
}

// Authenticate exchanges the client credentials for a bearer token used by
// subsequent queries.
func (c *Client) Authenticate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.authTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.creds.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return &AuthError{StatusCode: re.Response.StatusCode, Err: err}
		}
		return &AuthError{Err: err}
	}
	c.logger.Debug("nms token acquired", "expiry", tok.Expiry)
	c.token = tok
	return nil
}

// FetchObstacleNotices queries domestic obstruction notices as GeoJSON.
// Authenticate must have succeeded first.
func (c *Client) FetchObstacleNotices(ctx context.Context) ([]domain.RawNotice, error) {
	if c.token == nil {
		return nil, &AuthError{Err: errors.New("not authenticated")}
	}

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	params := url.Values{
		"classification": {"DOMESTIC"},
		"feature":        {"OBST"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.notamURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("nms: build request: %w", err)
	}
	c.token.SetAuthHeader(req)
	req.Header.Set("nmsResponseFormat", "GEOJSON")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nms: query notices: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &AuthError{StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nms: query notices: status %d: %s", resp.StatusCode, body)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("nms: decode notices: %w", err)
	}
	notices := make([]domain.RawNotice, 0, len(out.Data.GeoJSON))
	for _, f := range out.Data.GeoJSON {
		notices = append(notices, f.toRaw())
	}
	return notices, nil
}
