package ebs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	logp "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "ebs",
})

// SetLogLevel changes the level of the library logger.
func SetLogLevel(level logp.Level) {
	log.SetLevel(level)
}

const (
	pathLogin        = "/ava/user-login"
	pathCheckUpdate  = "/ava/check-update"
	pathFullUpdate   = "/ava/full-update"
	pathSetPartition = "/ava/set-partition"
)

const (
	scheme    = "https://"
	apiSuffix = "/ava"
)

// Response is a successful, parsed API response.
type Response struct {
	gjson.Result
}

type Client struct {
	http    *http.Client
	baseURL string
	uniqID  string
	token   string
}

type Option func(c *Client)

// WithHTTPClient sets the http client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the given server address, e.g.
// "ac-ebs.juwentus.pl/ava". It does not touch the network.
func New(addr string, opts ...Option) *Client {
	cli := &Client{
		http:    http.DefaultClient,
		baseURL: NormalizeAddress(addr),
		uniqID:  uuid.New().String(),
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// NormalizeAddress turns the address as typed into the mobile app into the
// base url of the API: https:// is prepended and the /ava suffix dropped, as
// every API path already carries it.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if len(addr) >= len(scheme) && strings.EqualFold(addr[:len(scheme)], scheme) {
		addr = addr[len(scheme):]
	}
	trimmed := strings.TrimRight(addr, "/")
	if strings.HasSuffix(strings.ToLower(trimmed), apiSuffix) {
		addr = trimmed[:len(trimmed)-len(apiSuffix)]
	}
	return scheme + addr
}

func (c *Client) BaseURL() string { return c.baseURL }
func (c *Client) UniqID() string  { return c.uniqID }
func (c *Client) Token() string   { return c.token }

// Login authenticates the user, which must have been registered through the
// mobile app first.
func (c *Client) Login(email, pin string) error {
	log.Debug("login", "email", email)
	resp, err := c.Query(pathLogin, map[string]any{
		"user_mail": email,
		"user_code": pin,
		"uniq_id":   c.uniqID,
		"get_logo":  0,
	})
	if err != nil {
		return &AuthenticationError{Err: err}
	}
	token := resp.Get("user.token").String()
	if token == "" {
		return &AuthenticationError{Err: fmt.Errorf("response has no token")}
	}
	c.token = token
	return nil
}

// Query posts body as JSON to the given path and checks both the HTTP and
// the API status codes.
func (c *Client) Query(path string, body map[string]any) (Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("could not encode request: %w", err)
	}

	log.Debug("query", "path", path)
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return Response{}, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		log.Debug("query failed", "path", path, "status", resp.StatusCode)
		return Response{}, &TransportError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	if !gjson.ValidBytes(data) {
		return Response{}, fmt.Errorf("could not parse response of %s: invalid json", path)
	}

	result := gjson.ParseBytes(data)
	code := result.Get("status_code")
	if !code.Exists() {
		return Response{}, &APIError{Code: -1, Message: "response has no status_code"}
	}
	if code.Int() != 0 {
		return Response{}, &APIError{
			Code:    code.Int(),
			Message: result.Get("status_message").String(),
		}
	}
	return Response{result}, nil
}

// QueryAuth is like Query, but adds the session token and id to the body.
// These win over any caller supplied field with the same name.
func (c *Client) QueryAuth(path string, body map[string]any) (Response, error) {
	if c.token == "" {
		return Response{}, &AuthenticationError{Err: ErrNotLoggedIn}
	}
	if body == nil {
		body = map[string]any{}
	}
	body["user_token"] = c.token
	body["uniq_id"] = c.uniqID
	return c.Query(path, body)
}

// CheckUpdate lists the monitored objects of the account.
func (c *Client) CheckUpdate() ([]Object, error) {
	resp, err := c.QueryAuth(pathCheckUpdate, nil)
	if err != nil {
		return nil, fmt.Errorf("could not check update: %w", err)
	}
	var objects []Object
	for _, o := range resp.Get("objects").Array() {
		objects = append(objects, Object{ID: idFrom(o.Get("id"))})
	}
	return objects, nil
}

// FullUpdate gets the full state of the given objects.
func (c *Client) FullUpdate(ids ...ID) ([]FullObject, error) {
	resp, err := c.QueryAuth(pathFullUpdate, map[string]any{
		"objects": ids,
	})
	if err != nil {
		return nil, fmt.Errorf("could not get full update: %w", err)
	}
	var objects []FullObject
	for _, o := range resp.Get("full_objects").Array() {
		objects = append(objects, fullObjectFrom(o))
	}
	return objects, nil
}

// SetPartitionState changes the state of the partition with the given
// server id.
func (c *Client) SetPartitionState(id ID, state State) error {
	if !state.Valid() {
		return fmt.Errorf("could not set partition %s to %d: %w", id, int(state), ErrInvalidState)
	}
	log.Debug("set partition", "id", id, "state", state)
	if _, err := c.QueryAuth(pathSetPartition, map[string]any{
		"partition": id,
		"state":     int(state),
	}); err != nil {
		return fmt.Errorf("could not set partition %s to %s: %w", id, state, err)
	}
	return nil
}
