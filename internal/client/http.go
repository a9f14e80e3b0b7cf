package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/catalog/internal/store"
)

// webhookSecretHeader carries the shared secret on /revalidate.
const webhookSecretHeader = "x-webhook-secret"

// HTTPClient implements Client using the catalog HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	secret     string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request. secret is only sent to /revalidate.
func NewHTTPClient(baseURL, token, secret string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		secret:     secret,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Documents ---

func (c *HTTPClient) List(ctx context.Context, collection string, req *ListRequest) (*store.Result, error) {
	q := url.Values{}
	if req != nil {
		if req.Page > 0 {
			q.Set("page", strconv.Itoa(req.Page))
		}
		if req.Limit > 0 {
			q.Set("limit", strconv.Itoa(req.Limit))
		}
		if req.Sort != "" {
			q.Set("sort", req.Sort)
		}
		for field, v := range req.Where {
			q.Set("where["+field+"]", v)
		}
	}

	path := collectionPath(collection)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var res store.Result
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Get(ctx context.Context, collection, id string) (*store.Document, error) {
	var resp docResponse
	if err := c.doJSON(ctx, http.MethodGet, collectionPath(collection)+"/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.doc(collection)
}

func (c *HTTPClient) Create(ctx context.Context, collection string, data map[string]any) (*store.Document, error) {
	var resp docResponse
	if err := c.doJSON(ctx, http.MethodPost, collectionPath(collection), data, &resp); err != nil {
		return nil, err
	}
	return resp.doc(collection)
}

func (c *HTTPClient) Update(ctx context.Context, collection, id string, data map[string]any) (*store.Document, error) {
	body := make(map[string]any, len(data)+1)
	for k, v := range data {
		body[k] = v
	}
	body[store.KeyID] = id

	var resp docResponse
	if err := c.doJSON(ctx, http.MethodPut, collectionPath(collection), body, &resp); err != nil {
		return nil, err
	}
	return resp.doc(collection)
}

func (c *HTTPClient) Delete(ctx context.Context, collection, id string) error {
	q := url.Values{"id": {id}}
	return c.doJSON(ctx, http.MethodDelete, collectionPath(collection)+"?"+q.Encode(), nil, nil)
}

// --- Globals ---

func (c *HTTPClient) GetGlobal(ctx context.Context, slug string) (*store.GlobalDoc, error) {
	var resp globalResponse
	if err := c.doJSON(ctx, http.MethodGet, "/globals/"+url.PathEscape(slug), nil, &resp); err != nil {
		return nil, err
	}
	return resp.global()
}

func (c *HTTPClient) SetGlobal(ctx context.Context, slug string, data map[string]any) (*store.GlobalDoc, error) {
	var resp globalResponse
	if err := c.doJSON(ctx, http.MethodPost, "/globals/"+url.PathEscape(slug), data, &resp); err != nil {
		return nil, err
	}
	return resp.global()
}

// --- Uploads ---

func (c *HTTPClient) Upload(ctx context.Context, collection string, req *UploadRequest) (*store.Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range req.Fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", k, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.Filename))
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var resp docResponse
	if err := c.do(ctx, http.MethodPost, "/uploads/"+url.PathEscape(collection), mw.FormDataContentType(), &buf, nil, &resp); err != nil {
		return nil, err
	}
	return resp.doc(collection)
}

// --- Cache ---

func (c *HTTPClient) Revalidate(ctx context.Context, collection, operation string) (*RevalidateResponse, error) {
	data, err := json.Marshal(map[string]string{"collection": collection, "operation": operation})
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}
	header := http.Header{}
	header.Set(webhookSecretHeader, c.secret)

	var resp RevalidateResponse
	if err := c.do(ctx, http.MethodPost, "/revalidate", "application/json", bytes.NewReader(data), header, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Stats(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/cache/stats", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

func collectionPath(collection string) string {
	return "/collections/" + url.PathEscape(collection)
}

type docResponse struct {
	Doc *store.Document `json:"doc"`
}

func (r *docResponse) doc(collection string) (*store.Document, error) {
	if r.Doc == nil {
		return nil, fmt.Errorf("decoding response: missing doc")
	}
	r.Doc.Collection = collection
	return r.Doc, nil
}

type globalResponse struct {
	Global *store.GlobalDoc `json:"global"`
}

func (r *globalResponse) global() (*store.GlobalDoc, error) {
	if r.Global == nil {
		return nil, fmt.Errorf("decoding response: missing global")
	}
	return r.Global, nil
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, bodyReader, nil, result)
}

func (c *HTTPClient) do(ctx context.Context, method, path, contentType string, body io.Reader, header http.Header, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
