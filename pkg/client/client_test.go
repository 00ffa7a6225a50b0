package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRequests(t *testing.T) {
	ctx := context.Background()

	t.Run("sends bearer token", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "version": "1.0.0"})
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL, Token: "tok-123"})
		health, err := c.Health(ctx)

		require.NoError(t, err)
		assert.Equal(t, "Bearer tok-123", gotAuth)
		assert.Equal(t, "healthy", health.Status)
	})

	t.Run("decodes list envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/vendors", r.URL.Path)
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			assert.Equal(t, "acme", r.URL.Query().Get("search"))
			assert.Equal(t, "active", r.URL.Query().Get("status"))
			_, _ = w.Write([]byte(`{"vendors":[{"id":"v-1","name":"Acme"}],"total":1}`))
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL})
		list, err := c.ListVendors(ctx, VendorFilter{Search: "acme", Status: "active"}, 10, 0)

		require.NoError(t, err)
		assert.Equal(t, 1, list.Total)
		require.Len(t, list.Vendors, 1)
		assert.Equal(t, "Acme", list.Vendors[0].Name)
	})

	t.Run("search escapes query", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "acme corp", r.URL.Query().Get("q"))
			_, _ = w.Write([]byte(`{"results":[],"total":0,"query":"acme corp"}`))
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL})
		resp, err := c.Search(ctx, "acme corp", 0)

		require.NoError(t, err)
		assert.Equal(t, "acme corp", resp.Query)
	})

	t.Run("API error carries code and status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"vendor not found"}}`))
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL})
		_, err := c.GetVendor(ctx, "missing")

		require.Error(t, err)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
		assert.Equal(t, "NOT_FOUND", apiErr.Code)
		assert.Equal(t, "vendor not found", apiErr.Message)
	})

	t.Run("tolerates empty response body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL})
		err := c.DeleteVendor(ctx, "v-1")

		require.NoError(t, err)
	})

	t.Run("SSO exchange keeps session token", func(t *testing.T) {
		var secondAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/api/v1/auth/sso/exchange":
				_, _ = w.Write([]byte(`{"token":"session-token","user":{"id":"u-1","email":"a@example.com"}}`))
			case "/api/v1/auth/me":
				secondAuth = r.Header.Get("Authorization")
				_, _ = w.Write([]byte(`{"id":"u-1","email":"a@example.com"}`))
			}
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL})
		session, err := c.ExchangeSSOCode(ctx, "auth-code")
		require.NoError(t, err)
		assert.Equal(t, "session-token", session.Token)

		user, err := c.Me(ctx)
		require.NoError(t, err)
		assert.Equal(t, "u-1", user.ID)
		assert.Equal(t, "Bearer session-token", secondAuth)
	})
}
