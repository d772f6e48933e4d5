package rda_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coecms/cmorph-mirror/internal/rda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate_Success(t *testing.T) {
	var gotForm map[string]string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"email":  r.PostFormValue("email"),
			"passwd": r.PostFormValue("passwd"),
			"action": r.PostFormValue("action"),
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := rda.NewClient(ts.URL, ts.URL+"/data/")
	err := client.Authenticate(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", gotForm["email"])
	assert.Equal(t, "secret", gotForm["passwd"])
	assert.Equal(t, "login", gotForm["action"])
}

func TestAuthenticate_Error(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		responseBody string
	}{
		{"forbidden", http.StatusForbidden, "bad credentials"},
		{"unauthorized", http.StatusUnauthorized, "login required"},
		{"server error", http.StatusInternalServerError, "oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.responseBody)
			}))
			defer ts.Close()

			client := rda.NewClient(ts.URL, ts.URL+"/data/")
			err := client.Authenticate(context.Background(), "user@example.com", "secret")
			require.Error(t, err)

			var authErr *rda.AuthError
			require.True(t, errors.As(err, &authErr))
			assert.Equal(t, tt.statusCode, authErr.StatusCode)
			assert.Equal(t, tt.responseBody, authErr.Body)
		})
	}
}

// The session cookie obtained at login must ride on every subsequent fetch.
func TestFetchFile_CarriesSessionCookie(t *testing.T) {
	payload := "file-bytes"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			w.WriteHeader(http.StatusOK)
		default:
			cookie, err := r.Cookie("session")
			if assert.NoError(t, err, "fetch must carry the session cookie") {
				assert.Equal(t, "abc", cookie.Value)
			}
			fmt.Fprint(w, payload)
		}
	}))
	defer ts.Close()

	client := rda.NewClient(ts.URL+"/login", ts.URL+"/data/")
	require.NoError(t, client.Authenticate(context.Background(), "user@example.com", "secret"))

	resp, err := client.FetchFile(context.Background(), ts.URL+"/data/somefile.nc")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
	assert.Equal(t, int64(len(payload)), resp.ContentLength)
}

func TestAuthError_Error(t *testing.T) {
	cause := errors.New("underlying cause")
	err := &rda.AuthError{StatusCode: http.StatusForbidden, Body: "denied", Err: cause}

	assert.Equal(t, "authentication failed (HTTP 403)", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))

	wrapped := fmt.Errorf("context: %w", err)

	var target *rda.AuthError
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "denied", target.Body)
}
