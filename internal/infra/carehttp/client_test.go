package carehttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"care-companion/internal/domain"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestCurrentSubjectIDSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/me", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id": 42, "name": "Kim"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "tok-1", server.Client())
	id, err := client.CurrentSubjectID(context.Background())
	require.NoError(t, err)
	require.Equal(t, "42", id)
}

func TestCurrentSubjectIDWithoutID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name": "Kim"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", server.Client()).CurrentSubjectID(context.Background())
	require.ErrorIs(t, err, domain.ErrSubjectNotFound)
}

func TestFetchPromptsParsesPhotos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/seniors/7/photos", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"photoId": 1, "imageUrl": "/img/1.jpg", "caption": "Grandson Minsu"},
			{"photoId": "p2", "imageUrl": "https://cdn.test/2.jpg", "caption": "Daughter", "distractors": ["Son"]}
		]`))
	}))
	defer server.Close()

	prompts, err := NewClient(server.URL, "tok", server.Client()).FetchPrompts(context.Background(), "7")
	require.NoError(t, err)
	require.Equal(t, []domain.Prompt{
		{ID: "1", ImageURL: "/img/1.jpg", Caption: "Grandson Minsu"},
		{ID: "p2", ImageURL: "https://cdn.test/2.jpg", Caption: "Daughter", Distractors: []string{"Son"}},
	}, prompts)
}

func TestVerifyAnswerPostsAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/photos/1/check-answer", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body checkAnswerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(checkAnswerResponse{IsCorrect: body.Answer == "Minsu"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", server.Client())
	ok, err := client.VerifyAnswer(context.Background(), "1", "Minsu")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.VerifyAnswer(context.Background(), "1", "Jiyoung")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUnauthorizedMapsToUnauthenticated(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message": "token expired"}`))
		}))

		_, err := NewClient(server.URL, "old", server.Client()).FetchPrompts(context.Background(), "7")
		server.Close()

		require.ErrorIs(t, err, domain.ErrUnauthenticated)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, status, apiErr.StatusCode)
		require.Equal(t, "token expired", apiErr.Message)
	}
}

func TestServerErrorIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "tok", server.Client()).VerifyAnswer(context.Background(), "1", "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	require.NotErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestTransportFailureIsContentUnavailable(t *testing.T) {
	client := NewClient("http://care.test", "tok", &http.Client{
		Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial error")
		}),
	})

	_, err := client.FetchPrompts(context.Background(), "7")
	require.ErrorIs(t, err, domain.ErrContentUnavailable)
}

func TestGamesBindsTokenPerDevice(t *testing.T) {
	var seen []string
	client := &http.Client{
		Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			seen = append(seen, r.Header.Get("Authorization"))
			rec := httptest.NewRecorder()
			_, _ = rec.WriteString(`{"id": "s-1"}`)
			return rec.Result(), nil
		}),
	}
	games := Games("http://care.test", client)

	_, identityA := games("s-1", "a")
	_, identityB := games("s-1", "b")
	_, err := identityA.CurrentSubjectID(context.Background())
	require.NoError(t, err)
	_, err = identityB.CurrentSubjectID(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Bearer a", "Bearer b"}, seen)
}
