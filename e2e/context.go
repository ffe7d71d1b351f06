package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext carries HTTP state across steps of one scenario: the last
// response, the bearer token in use and ids saved by earlier steps.
type TestContext struct {
	baseURL string
	client  *http.Client

	token      string
	adapterKey string

	lastStatus int
	lastBody   []byte
	lastJSON   map[string]interface{}

	saved map[string]string
}

// NewTestContext builds a context pointed at the service under test.
// TRAVELCHECK_E2E_URL overrides the default local address.
func NewTestContext() *TestContext {
	baseURL := os.Getenv("TRAVELCHECK_E2E_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &TestContext{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		saved:   map[string]string{},
	}
}

// Reset clears per-scenario state so scenarios stay independent.
func (tc *TestContext) Reset() {
	tc.token = ""
	tc.adapterKey = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastJSON = nil
	tc.saved = map[string]string{}
}

// SetToken sets the bearer token attached to subsequent requests.
func (tc *TestContext) SetToken(token string) { tc.token = token }

// SetAdapterKey sets the adapter API key attached to subsequent requests.
func (tc *TestContext) SetAdapterKey(key string) { tc.adapterKey = key }

// Save remembers a value under a name for later steps.
func (tc *TestContext) Save(name, value string) { tc.saved[name] = value }

// Saved returns a previously remembered value.
func (tc *TestContext) Saved(name string) string { return tc.saved[name] }

// POST sends a JSON body; body may be a raw JSON string or any marshalable
// value.
func (tc *TestContext) POST(path string, body interface{}) error {
	return tc.do(http.MethodPost, path, body)
}

// GET issues a GET request.
func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

// DELETE issues a DELETE request.
func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) do(method, path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			encoded, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("encode request body: %w", err)
			}
			reader = bytes.NewReader(encoded)
		}
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	if tc.adapterKey != "" {
		req.Header.Set("X-Adapter-Key", tc.adapterKey)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	tc.lastJSON = nil
	if len(tc.lastBody) > 0 {
		_ = json.Unmarshal(tc.lastBody, &tc.lastJSON)
	}
	return nil
}

// LastStatus returns the status code of the most recent response.
func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// LastBody returns the raw body of the most recent response.
func (tc *TestContext) LastBody() []byte { return tc.lastBody }

// ResponseField resolves a dotted path ("report.id") in the last JSON
// response.
func (tc *TestContext) ResponseField(path string) (interface{}, error) {
	if tc.lastJSON == nil {
		return nil, fmt.Errorf("last response was not a JSON object: %s", tc.lastBody)
	}
	var current interface{} = tc.lastJSON
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", path, part)
		}
		current, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not present in response: %s", path, tc.lastBody)
		}
	}
	return current, nil
}

// ResponseStringField resolves a dotted path and requires a string value.
func (tc *TestContext) ResponseStringField(path string) (string, error) {
	value, err := tc.ResponseField(path)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %q is %T, not a string", path, value)
	}
	return s, nil
}
