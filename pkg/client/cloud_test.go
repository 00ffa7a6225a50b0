package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

func TestCloudMethods(t *testing.T) {
	ctx := context.Background()

	t.Run("list buckets sends filters", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/cloud/s3-buckets", r.URL.Path)
			assert.Equal(t, "123456789012", r.URL.Query().Get("account_id"))
			assert.Equal(t, "eu-west-1", r.URL.Query().Get("region"))
			assert.Equal(t, "25", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`{"buckets":[{"id":"b-1","name":"logs","public":true,"risk_score":5}],"total":1}`))
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL})
		list, err := c.ListS3Buckets(ctx, CloudFilter{AccountID: "123456789012", Region: "eu-west-1"}, 25, 0)

		require.NoError(t, err)
		assert.Equal(t, 1, list.Total)
		require.Len(t, list.Buckets, 1)
		assert.True(t, list.Buckets[0].Public)
		assert.Equal(t, 5, list.Buckets[0].RiskScore)
	})

	t.Run("list findings sends severity filter", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "HIGH", r.URL.Query().Get("severity"))
			_, _ = w.Write([]byte(`{"findings":[],"total":0}`))
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL})
		list, err := c.ListSecurityHubFindings(ctx, CloudFilter{Severity: "HIGH"}, 50, 0)

		require.NoError(t, err)
		assert.Equal(t, 0, list.Total)
	})

	t.Run("import snapshot posts JSON body", func(t *testing.T) {
		var got models.CloudSnapshot
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/cloud/snapshot", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL})
		err := c.ImportCloudSnapshot(ctx, &models.CloudSnapshot{
			AccountID: "123456789012",
			S3Buckets: []*models.S3Bucket{{Name: "logs"}},
		})

		require.NoError(t, err)
		assert.Equal(t, "123456789012", got.AccountID)
		require.Len(t, got.S3Buckets, 1)
	})

	t.Run("feature probe", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/features", r.URL.Path)
			_, _ = w.Write([]byte(`{"search":false}`))
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL})
		features, err := c.GetFeatures(ctx)

		require.NoError(t, err)
		assert.False(t, features.Search)
	})

	t.Run("network failure has status zero", func(t *testing.T) {
		c := New(Config{BaseURL: "http://127.0.0.1:1"})
		_, err := c.GetFeatures(ctx)

		require.Error(t, err)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 0, apiErr.Status)
	})
}

func TestUploadPolicyAttachment(t *testing.T) {
	ctx := context.Background()

	t.Run("sends multipart file", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/policies/p-1/attachments", r.URL.Path)
			assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer func() { _ = file.Close() }()
			assert.Equal(t, "evidence.pdf", header.Filename)

			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"policy_id":"p-1","file_name":"evidence.pdf","size_bytes":8}`))
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL, Token: "tok"})
		att, err := c.UploadPolicyAttachment(ctx, "p-1", "evidence.pdf", strings.NewReader("contents"))

		require.NoError(t, err)
		assert.Equal(t, "evidence.pdf", att.FileName)
		assert.Equal(t, int64(8), att.SizeBytes)
	})

	t.Run("server rejection surfaces APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"policy not found"}}`))
		}))
		defer server.Close()

		c := New(Config{BaseURL: server.URL})
		_, err := c.UploadPolicyAttachment(ctx, "missing", "evidence.pdf", strings.NewReader("x"))

		require.Error(t, err)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
		assert.Equal(t, "NOT_FOUND", apiErr.Code)
	})
}
