package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %d %s", e.Status, e.Message)
}

var ErrInvalidStatus = errors.New("invalid certificate status")

// Client talks to the Purrform backend. Every call is one request with no
// retries.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListBreederCertificates(ctx context.Context, status CertificateStatus) ([]BreederCertificate, error) {
	q := url.Values{}
	if status != "" {
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		q.Set("status", string(status))
	}
	var out []BreederCertificate
	if err := c.do(ctx, http.MethodGet, "/breeder-certificates", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ReviewBreederCertificate(ctx context.Context, id string, review Review) (*BreederCertificate, error) {
	if review.Status != StatusApproved && review.Status != StatusRejected {
		return nil, ErrInvalidStatus
	}
	var out BreederCertificate
	path := "/breeder-certificates/" + url.PathEscape(id) + "/review"
	if err := c.do(ctx, http.MethodPost, path, nil, review, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UploadBreederCertificate(ctx context.Context, up CertificateUpload) (*BreederCertificate, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"breederName": up.BreederName,
		"email":       up.Email,
		"kennelName":  up.KennelName,
	} {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="certificate"; filename=%q`, up.FileName))
	ct := up.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(up.File); err != nil {
		return nil, fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/breeder-certificates", nil, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out BreederCertificate
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDeliveryDates(ctx context.Context) ([]DeliveryDate, error) {
	var out []DeliveryDate
	if err := c.do(ctx, http.MethodGet, "/delivery-dates", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateDeliveryDate(ctx context.Context, d DeliveryDate) (*DeliveryDate, error) {
	var out DeliveryDate
	if err := c.do(ctx, http.MethodPut, "/delivery-dates/"+url.PathEscape(d.ID), nil, d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchRecallProducts(ctx context.Context, rq RecallQuery) ([]RecallProduct, error) {
	q := url.Values{}
	if rq.Query != "" {
		q.Set("q", rq.Query)
	}
	if rq.Batch != "" {
		q.Set("batch", rq.Batch)
	}
	var out []RecallProduct
	if err := c.do(ctx, http.MethodGet, "/recall-products", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TraderCreditReport(ctx context.Context, from, to string) (*TraderCreditReport, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	var out TraderCreditReport
	if err := c.do(ctx, http.MethodGet, "/trader-credit", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	var out []Ingredient
	if err := c.do(ctx, http.MethodGet, "/ingredients", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateIngredient(ctx context.Context, in Ingredient) (*Ingredient, error) {
	var out Ingredient
	if err := c.do(ctx, http.MethodPost, "/ingredients", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateIngredient(ctx context.Context, in Ingredient) (*Ingredient, error) {
	var out Ingredient
	if err := c.do(ctx, http.MethodPut, "/ingredients/"+url.PathEscape(in.ID), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetIngredient(ctx context.Context, id string) (*Ingredient, error) {
	var out Ingredient
	if err := c.do(ctx, http.MethodGet, "/ingredients/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteIngredient(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/ingredients/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, q, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(data))
}
