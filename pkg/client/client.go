package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookworm/pkg/domain"
)

// Client calls the bookworm API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents an API error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewClient constructs an API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthResponse is the register/login response payload.
type AuthResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, username, email, password string) (AuthResponse, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/auth/register", "", body)
	if err != nil {
		return AuthResponse{}, err
	}
	var resp AuthResponse
	if err := c.do(req, &resp); err != nil {
		return AuthResponse{}, err
	}
	return resp, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/auth/login", "", body)
	if err != nil {
		return AuthResponse{}, err
	}
	var resp AuthResponse
	if err := c.do(req, &resp); err != nil {
		return AuthResponse{}, err
	}
	return resp, nil
}

// Logout revokes the session token server-side.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/auth/logout", token, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ListBooks fetches one page of the shared feed, newest first.
func (c *Client) ListBooks(ctx context.Context, token string, page, limit int) (domain.BookPage, error) {
	path := "/api/books?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)
	req, err := c.newJSONRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return domain.BookPage{}, err
	}
	var resp domain.BookPage
	if err := c.do(req, &resp); err != nil {
		return domain.BookPage{}, err
	}
	return resp, nil
}

// ListMyBooks fetches every book posted by the authenticated user.
func (c *Client) ListMyBooks(ctx context.Context, token string) ([]domain.Book, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/api/books/user", token, nil)
	if err != nil {
		return nil, err
	}
	var books []domain.Book
	if err := c.do(req, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// CreateBook posts a new recommendation. imageData is a base64 data URI.
func (c *Client) CreateBook(ctx context.Context, token, title, caption string, rating int, imageData string) (domain.Book, error) {
	body := map[string]any{
		"title":   title,
		"caption": caption,
		"rating":  rating,
		"image":   imageData,
	}
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/books", token, body)
	if err != nil {
		return domain.Book{}, err
	}
	var book domain.Book
	if err := c.do(req, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

func (c *Client) DeleteBook(ctx context.Context, token, id string) error {
	req, err := c.newJSONRequest(ctx, http.MethodDelete, "/api/books/"+id, token, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) newJSONRequest(ctx context.Context, method, path, token string, body any) (*http.Request, error) {
	var buf *bytes.Buffer
	if body != nil {
		buf = &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}
	var req *http.Request
	var err error
	if buf != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Message
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
