package wda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
)

// Client is an HTTP client for WebDriverAgent.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

// NewClient creates a new WDA client for the given base URL
// (for example http://localhost:8100).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Error is an error reported by WebDriverAgent itself.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("WDA error: %s", e.Message)
}

// WDA error codes the actor reacts to.
const (
	codeNoSuchElement     = "no such element"
	codeNoSuchAlert       = "no such alert"
	codeInvalidSession    = "invalid session id"
	codeSessionNotCreated = "session not created"
)

func hasCode(err error, code string) bool {
	var we *Error
	return errors.As(err, &we) && we.Code == code
}

// Session management

// CreateSession creates a new WDA session.
func (c *Client) CreateSession(ctx context.Context, bundleID string) error {
	caps := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": map[string]interface{}{
				"bundleId": bundleID,
			},
		},
	}

	resp, err := c.post(ctx, "/session", caps)
	if hasCode(err, codeSessionNotCreated) {
		return core.ErrAppLaunchFailed.WithCause(err).WithDetails(map[string]interface{}{"bundleId": bundleID})
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	// Extract session ID
	if value, ok := resp["value"].(map[string]interface{}); ok {
		if sessionID, ok := value["sessionId"].(string); ok {
			c.sessionID = sessionID
		}
	}
	if c.sessionID == "" {
		if sessionID, ok := resp["sessionId"].(string); ok {
			c.sessionID = sessionID
		}
	}

	return nil
}

// DeleteSession ends the current session.
func (c *Client) DeleteSession(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}
	_, err := c.delete(ctx, fmt.Sprintf("/session/%s", c.sessionID))
	c.sessionID = ""
	return err
}

// HasSession returns true if a session is active.
func (c *Client) HasSession() bool {
	return c.sessionID != ""
}

// SessionID returns the current session ID.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Status returns WDA status. It needs no session and is used as a
// reachability check before one is created.
func (c *Client) Status(ctx context.Context) (map[string]interface{}, error) {
	return c.get(ctx, "/status")
}

// Screen

// Source returns the UI hierarchy as XML.
func (c *Client) Source(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, c.sessionPath("/source"))
	if err != nil {
		return "", err
	}

	if value, ok := resp["value"].(string); ok {
		return value, nil
	}
	return "", fmt.Errorf("invalid source response")
}

// Alerts

// AcceptAlert accepts the system alert on screen.
func (c *Client) AcceptAlert(ctx context.Context) error {
	_, err := c.post(ctx, c.sessionPath("/alert/accept"), nil)
	return err
}

// Element finding

// FindElement finds a single element.
func (c *Client) FindElement(ctx context.Context, using, value string) (string, error) {
	resp, err := c.post(ctx, c.sessionPath("/element"), map[string]interface{}{
		"using": using,
		"value": value,
	})
	if err != nil {
		return "", err
	}
	if id := elementID(resp["value"]); id != "" {
		return id, nil
	}
	return "", &Error{Code: codeNoSuchElement, Message: "element not found"}
}

// FindElementsFrom finds elements below the element parentID.
func (c *Client) FindElementsFrom(ctx context.Context, parentID, using, value string) ([]string, error) {
	return c.findElements(ctx, c.sessionPath(fmt.Sprintf("/element/%s/elements", parentID)), using, value)
}

func (c *Client) findElements(ctx context.Context, path, using, value string) ([]string, error) {
	resp, err := c.post(ctx, path, map[string]interface{}{
		"using": using,
		"value": value,
	})
	if err != nil {
		return nil, err
	}

	var elements []string
	if val, ok := resp["value"].([]interface{}); ok {
		for _, elem := range val {
			if id := elementID(elem); id != "" {
				elements = append(elements, id)
			}
		}
	}
	return elements, nil
}

// elementID extracts an element reference in either JSONWP or W3C format.
func elementID(v interface{}) string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	if id, ok := m["ELEMENT"].(string); ok {
		return id
	}
	// W3C format
	for k, v := range m {
		if str, ok := v.(string); ok && k != "error" {
			return str
		}
	}
	return ""
}

// Element actions

// ElementClick clicks an element.
func (c *Client) ElementClick(ctx context.Context, elementID string) error {
	_, err := c.post(ctx, c.sessionPath(fmt.Sprintf("/element/%s/click", elementID)), nil)
	return err
}

// ElementSwipe swipes an element in direction (up, down, left, right).
func (c *Client) ElementSwipe(ctx context.Context, elementID, direction string) error {
	_, err := c.post(ctx, c.sessionPath(fmt.Sprintf("/wda/element/%s/swipe", elementID)), map[string]interface{}{
		"direction": direction,
	})
	return err
}

// ElementSendKeys types text into an element.
func (c *Client) ElementSendKeys(ctx context.Context, elementID, text string) error {
	_, err := c.post(ctx, c.sessionPath(fmt.Sprintf("/element/%s/value", elementID)), map[string]interface{}{
		"value": strings.Split(text, ""),
	})
	return err
}

// ElementClear clears an element's text.
func (c *Client) ElementClear(ctx context.Context, elementID string) error {
	_, err := c.post(ctx, c.sessionPath(fmt.Sprintf("/element/%s/clear", elementID)), nil)
	return err
}

// Element attributes

// ElementType returns an element's XCUIElementType name.
func (c *Client) ElementType(ctx context.Context, elementID string) (string, error) {
	return c.elementString(ctx, elementID, "name")
}

// ElementText returns an element's text.
func (c *Client) ElementText(ctx context.Context, elementID string) (string, error) {
	return c.elementString(ctx, elementID, "text")
}

// ElementAttribute returns a named attribute, or "" if it is unset.
func (c *Client) ElementAttribute(ctx context.Context, elementID, name string) (string, error) {
	return c.elementString(ctx, elementID, "attribute/"+name)
}

// ElementDisplayed checks if an element is visible.
func (c *Client) ElementDisplayed(ctx context.Context, elementID string) (bool, error) {
	return c.elementBool(ctx, elementID, "displayed")
}

// ElementEnabled checks if an element accepts interaction.
func (c *Client) ElementEnabled(ctx context.Context, elementID string) (bool, error) {
	return c.elementBool(ctx, elementID, "enabled")
}

// ElementSelected checks if an element is selected.
func (c *Client) ElementSelected(ctx context.Context, elementID string) (bool, error) {
	return c.elementBool(ctx, elementID, "selected")
}

// ElementRect returns an element's bounds.
func (c *Client) ElementRect(ctx context.Context, elementID string) (core.Bounds, error) {
	resp, err := c.get(ctx, c.sessionPath(fmt.Sprintf("/element/%s/rect", elementID)))
	if err != nil {
		return core.Bounds{}, err
	}
	var b core.Bounds
	if value, ok := resp["value"].(map[string]interface{}); ok {
		if v, ok := value["x"].(float64); ok {
			b.X = int(v)
		}
		if v, ok := value["y"].(float64); ok {
			b.Y = int(v)
		}
		if v, ok := value["width"].(float64); ok {
			b.Width = int(v)
		}
		if v, ok := value["height"].(float64); ok {
			b.Height = int(v)
		}
	}
	return b, nil
}

func (c *Client) elementString(ctx context.Context, elementID, prop string) (string, error) {
	resp, err := c.get(ctx, c.sessionPath(fmt.Sprintf("/element/%s/%s", elementID, prop)))
	if err != nil {
		return "", err
	}
	if value, ok := resp["value"].(string); ok {
		return value, nil
	}
	return "", nil
}

func (c *Client) elementBool(ctx context.Context, elementID, prop string) (bool, error) {
	resp, err := c.get(ctx, c.sessionPath(fmt.Sprintf("/element/%s/%s", elementID, prop)))
	if err != nil {
		return false, err
	}
	if value, ok := resp["value"].(bool); ok {
		return value, nil
	}
	return false, nil
}

// HTTP helpers

func (c *Client) sessionPath(path string) string {
	if c.sessionID != "" {
		return fmt.Sprintf("/session/%s%s", c.sessionID, path)
	}
	return path
}

func (c *Client) get(ctx context.Context, path string) (map[string]interface{}, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (map[string]interface{}, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) delete(ctx context.Context, path string) (map[string]interface{}, error) {
	return c.do(ctx, http.MethodDelete, path, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, core.ErrServerUnreachable.WithCause(err)
	}
	defer resp.Body.Close()
	return c.parseResponse(resp)
}

func (c *Client) parseResponse(resp *http.Response) (map[string]interface{}, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}

	// Check for WDA error
	if value, ok := result["value"].(map[string]interface{}); ok {
		if errCode, ok := value["error"].(string); ok {
			message := errCode
			if msg, ok := value["message"].(string); ok {
				message = msg
			}
			werr := &Error{Code: errCode, Message: message}
			if errCode == codeInvalidSession {
				return nil, core.ErrDeviceDisconnected.WithCause(werr)
			}
			return nil, werr
		}
	}

	return result, nil
}
