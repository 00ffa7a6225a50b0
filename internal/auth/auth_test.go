package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/config"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

func TestTokenManager(t *testing.T) {
	tm, err := NewTokenManager("test-secret", "grc-server", time.Hour)
	require.NoError(t, err)

	user := &models.User{ID: "u-1", Email: "alice@example.com", Name: "Alice", Role: "admin"}

	t.Run("round trip", func(t *testing.T) {
		token, err := tm.Issue(user)
		require.NoError(t, err)

		got, err := tm.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.Email, got.Email)
		assert.Equal(t, "admin", got.Role)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		other, err := NewTokenManager("other-secret", "grc-server", time.Hour)
		require.NoError(t, err)

		token, err := other.Issue(user)
		require.NoError(t, err)
		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, errors.ErrUnauthorized)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		short, err := NewTokenManager("test-secret", "grc-server", time.Nanosecond)
		require.NoError(t, err)
		token, err := short.Issue(user)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, errors.ErrUnauthorized)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := tm.Verify("not.a.token")
		assert.ErrorIs(t, err, errors.ErrUnauthorized)
	})

	t.Run("secret is required", func(t *testing.T) {
		_, err := NewTokenManager("", "grc-server", time.Hour)
		assert.Error(t, err)
	})
}

func TestSSOExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			http.Error(w, "bad code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"upstream-token"}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer upstream-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"u-42","email":"bob@example.com","name":"Bob"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tm, err := NewTokenManager("test-secret", "grc-server", time.Hour)
	require.NoError(t, err)
	ex := NewSSOExchanger(config.AuthConfig{
		SSOTokenURL:    srv.URL + "/token",
		SSOUserInfoURL: srv.URL + "/userinfo",
		SSOClientID:    "grc",
	}, tm)

	t.Run("valid code yields local session", func(t *testing.T) {
		session, err := ex.Exchange(context.Background(), "good-code")
		require.NoError(t, err)
		assert.Equal(t, "u-42", session.User.ID)
		assert.Equal(t, "bob@example.com", session.User.Email)

		got, err := tm.Verify(session.Token)
		require.NoError(t, err)
		assert.Equal(t, "u-42", got.ID)
	})

	t.Run("bad code is unauthorized", func(t *testing.T) {
		_, err := ex.Exchange(context.Background(), "bad-code")
		assert.ErrorIs(t, err, errors.ErrUnauthorized)
	})

	t.Run("empty code rejected", func(t *testing.T) {
		_, err := ex.Exchange(context.Background(), "")
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}
