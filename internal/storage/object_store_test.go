package storage_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/onpoint/ticket-bridge/internal/config"
	"github.com/onpoint/ticket-bridge/internal/storage"
)

func TestDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches the object from the bucket path", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/object/ticket-attachments/t1/shot.png", r.URL.Path)
			_, _ = w.Write([]byte("pngbytes"))
		}))
		defer server.Close()

		client := storage.NewClient(config.StorageConfig{
			BaseURL: server.URL,
			Bucket:  "ticket-attachments",
		}, zap.NewNop())

		data, err := client.Download(ctx, "t1/shot.png")
		require.NoError(t, err)
		assert.Equal(t, []byte("pngbytes"), data)
	})

	t.Run("escapes path segments without touching separators", func(t *testing.T) {
		var requested string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requested = r.URL.EscapedPath()
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()

		client := storage.NewClient(config.StorageConfig{
			BaseURL: server.URL,
			Bucket:  "ticket-attachments",
		}, zap.NewNop())

		_, err := client.Download(ctx, "t1/rapport final.pdf")
		require.NoError(t, err)
		assert.Equal(t, "/object/ticket-attachments/t1/rapport%20final.pdf", requested)
	})

	t.Run("reports upstream errors with status and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("object not found"))
		}))
		defer server.Close()

		client := storage.NewClient(config.StorageConfig{
			BaseURL: server.URL,
			Bucket:  "ticket-attachments",
		}, zap.NewNop())

		_, err := client.Download(ctx, "t1/missing.bin")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
		assert.Contains(t, err.Error(), "object not found")
	})
}
