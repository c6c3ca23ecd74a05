package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/onpoint/ticket-bridge/internal/config"
)

// Client reads attachment bytes from the internal object store. The store is
// a collaborator: this package only downloads, it is not a system of record.
type Client interface {
	Download(ctx context.Context, path string) ([]byte, error)
}

type httpClient struct {
	baseURL string
	bucket  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds an object store client from configuration.
func NewClient(cfg config.StorageConfig, logger *zap.Logger) Client {
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		bucket:  cfg.Bucket,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

func (c *httpClient) Download(ctx context.Context, path string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/object/%s/%s", c.baseURL, url.PathEscape(c.bucket), escapePath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("object store responded %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("downloaded object", zap.String("path", path), zap.Int("bytes", len(data)))
	return data, nil
}

// escapePath escapes each path segment while keeping separators intact.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
