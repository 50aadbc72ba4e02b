package carehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"care-companion/internal/app"
	"care-companion/internal/domain"
)

// DefaultTimeout bounds every request when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the care API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Unwrap maps rejected credentials onto domain.ErrUnauthenticated.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return domain.ErrUnauthenticated
	}
	return nil
}

// Client talks to the remote care API on behalf of one signed-in user.
// It serves both as the game's content service and its identity service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type meResponse struct {
	ID json.RawMessage `json:"id"`
}

type photoResponse struct {
	PhotoID     json.RawMessage `json:"photoId"`
	ImageURL    string          `json:"imageUrl"`
	Caption     string          `json:"caption"`
	Distractors []string        `json:"distractors"`
}

type checkAnswerRequest struct {
	Answer string `json:"answer"`
}

type checkAnswerResponse struct {
	IsCorrect bool `json:"isCorrect"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: baseURL, token: token, httpClient: httpClient}
}

// Games builds a game factory that opens a client per device token.
func Games(baseURL string, httpClient *http.Client) app.GameFactory {
	return func(_, token string) (app.ContentService, app.IdentityService) {
		c := NewClient(baseURL, token, httpClient)
		return c, c
	}
}

// CurrentSubjectID asks the API who the token belongs to.
func (c *Client) CurrentSubjectID(ctx context.Context) (string, error) {
	var me meResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/me", nil, &me); err != nil {
		return "", fmt.Errorf("get current user: %w", err)
	}
	id := rawID(me.ID)
	if id == "" {
		return "", domain.ErrSubjectNotFound
	}
	return id, nil
}

func (c *Client) FetchPrompts(ctx context.Context, subjectID string) ([]domain.Prompt, error) {
	var photos []photoResponse
	path := "/api/seniors/" + url.PathEscape(subjectID) + "/photos"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &photos); err != nil {
		return nil, fmt.Errorf("fetch photos for %s: %w", subjectID, err)
	}
	prompts := make([]domain.Prompt, 0, len(photos))
	for _, p := range photos {
		prompts = append(prompts, domain.Prompt{
			ID:          rawID(p.PhotoID),
			ImageURL:    p.ImageURL,
			Caption:     p.Caption,
			Distractors: p.Distractors,
		})
	}
	return prompts, nil
}

func (c *Client) VerifyAnswer(ctx context.Context, promptID, answer string) (bool, error) {
	var result checkAnswerResponse
	path := "/api/photos/" + url.PathEscape(promptID) + "/check-answer"
	if err := c.doJSON(ctx, http.MethodPost, path, checkAnswerRequest{Answer: answer}, &result); err != nil {
		return false, fmt.Errorf("check answer for %s: %w", promptID, err)
	}
	return result.IsCorrect, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody, responseBody any) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrContentUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = strings.TrimSpace(payload.Message)
			if apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(payload.Error)
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
		return apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(responseBody)
}

// rawID accepts numeric and string identifiers.
func rawID(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}
