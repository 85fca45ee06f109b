package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/medfocus/medgenie/internal/material"
)

// DefaultRequestTimeout bounds every client call to the daemon.
const DefaultRequestTimeout = 15 * time.Second

// ClientConfig holds connection settings for the remote store client.
type ClientConfig struct {
	// BaseURL is the daemon's base URL, e.g. "http://localhost:8590".
	BaseURL string

	// Token is the bearer token. Required: unauthenticated callers
	// must not construct this tier at all.
	Token string

	// OwnerID scopes all operations to one account.
	OwnerID string

	// HTTPClient overrides the default HTTP client, mainly for
	// tests.
	HTTPClient *http.Client
}

// Client talks to the daemon's materials API. It implements
// material.RemoteStore.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient creates a remote store client. It fails fast for callers
// without credentials so the orchestrator falls back to treating the
// tier as permanently absent.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("remote store: missing base URL")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("remote store: missing token, " +
			"tier unavailable for unauthenticated callers")
	}
	if cfg.OwnerID == "" {
		return nil, fmt.Errorf("remote store: missing owner id")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultRequestTimeout}
	}

	return &Client{cfg: cfg, http: httpClient}, nil
}

// Find implements material.RemoteStore.
func (c *Client) Find(ctx context.Context, key material.MaterialKey) (
	*material.CachedEntry, error) {

	query := url.Values{
		"institutionId": {key.InstitutionID},
		"subjectName":   {key.SubjectName},
		"yearLevel":     {strconv.Itoa(key.YearLevel)},
	}

	var payload EntryPayload
	found, err := c.doJSON(
		ctx, http.MethodGet,
		"/v1/materials/find?"+query.Encode(), nil, &payload,
	)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	return payload.ToEntry(), nil
}

// Save implements material.RemoteStore.
func (c *Client) Save(ctx context.Context, key material.MaterialKey,
	institutionName string, content material.Content,
	research fn.Option[string]) (string, error) {

	req := SaveRequest{
		InstitutionID:   key.InstitutionID,
		InstitutionName: institutionName,
		SubjectName:     key.SubjectName,
		YearLevel:       key.YearLevel,
		Content:         content,
	}
	research.WhenSome(func(r string) {
		req.Research = &r
	})

	var resp SaveResponse
	found, err := c.doJSON(
		ctx, http.MethodPost, "/v1/materials", req, &resp,
	)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("remote store: unexpected empty " +
			"save response")
	}

	return resp.RecordID, nil
}

// ListRecent implements material.RemoteStore.
func (c *Client) ListRecent(ctx context.Context, limit int) (
	[]material.HistoryItem, error) {

	path := "/v1/materials/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var payload []HistoryItemPayload
	if _, err := c.doJSON(
		ctx, http.MethodGet, path, nil, &payload,
	); err != nil {
		return nil, err
	}

	items := make([]material.HistoryItem, 0, len(payload))
	for i := range payload {
		items = append(items, payload[i].ToHistoryItem())
	}

	return items, nil
}

// Rate implements material.RemoteStore.
func (c *Client) Rate(ctx context.Context, recordID string,
	score int) error {

	path := "/v1/materials/" + url.PathEscape(recordID) + "/rate"
	_, err := c.doJSON(
		ctx, http.MethodPost, path, RateRequest{Score: score}, nil,
	)

	return err
}

// doJSON performs one authenticated JSON round trip. It returns false
// with a nil error for 404 responses, which the caller interprets as a
// clean miss.
func (c *Client) doJSON(ctx context.Context, method, path string,
	body any, out any) (bool, error) {

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(
		ctx, method, c.cfg.BaseURL+path, reqBody,
	)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("X-Medgenie-Owner", c.cfg.OwnerID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("remote store request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil

	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("remote store: %s %s returned "+
			"%d: %s", method, path, resp.StatusCode,
			bytes.TrimSpace(msg))
	}

	if out == nil {
		return true, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}

	return true, nil
}

var _ material.RemoteStore = (*Client)(nil)
