package tracker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/onpoint/ticket-bridge/internal/config"
)

// IssueFields carries everything needed to create an issue in the tracker.
type IssueFields struct {
	Summary     string
	Description string
	IssueType   string
	Priority    string
	Labels      []string
	TicketID    string
}

// CreatedIssue is the tracker's answer to an issue creation.
type CreatedIssue struct {
	Key string
	ID  string
}

// Issue is the subset of issue fields the sync engine reads back.
type Issue struct {
	Key      string
	ID       string
	Status   string
	Priority string
}

// APIError is returned for any non-2xx tracker response. It carries the raw
// status and body so operators can diagnose the failure from last_error.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracker responded %d: %s", e.StatusCode, e.Body)
}

// Client talks to the external issue tracker. Each method is a single HTTP
// call bounded by the configured timeout; no retries are built in, callers
// decide retry policy. CreateIssue is NOT idempotent.
type Client interface {
	CreateIssue(ctx context.Context, fields IssueFields) (*CreatedIssue, error)
	GetIssue(ctx context.Context, key string, fieldNames []string) (*Issue, error)
	UploadAttachment(ctx context.Context, key, fileName, mimeType string, data []byte) error
}

type httpClient struct {
	baseURL       string
	projectKey    string
	ticketIDField string
	authHeader    string
	http          *http.Client
	logger        *zap.Logger
}

// NewClient builds a tracker client from configuration.
func NewClient(cfg config.TrackerConfig, logger *zap.Logger) Client {
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.Email + ":" + cfg.APIToken))
	return &httpClient{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		projectKey:    cfg.ProjectKey,
		ticketIDField: cfg.TicketIDField,
		authHeader:    "Basic " + creds,
		http:          &http.Client{Timeout: cfg.Timeout()},
		logger:        logger,
	}
}

type createIssueResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type issueResponse struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Status struct {
			Name string `json:"name"`
		} `json:"status"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
	} `json:"fields"`
}

func (c *httpClient) CreateIssue(ctx context.Context, fields IssueFields) (*CreatedIssue, error) {
	issueFields := map[string]any{
		"project":     map[string]string{"key": c.projectKey},
		"summary":     fields.Summary,
		"description": fields.Description,
		"issuetype":   map[string]string{"name": fields.IssueType},
		"priority":    map[string]string{"name": fields.Priority},
	}
	if len(fields.Labels) > 0 {
		issueFields["labels"] = fields.Labels
	}
	if c.ticketIDField != "" && fields.TicketID != "" {
		issueFields[c.ticketIDField] = fields.TicketID
	}

	body, err := json.Marshal(map[string]any{"fields": issueFields})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/api/3/issue", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed createIssueResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode create issue response: %w", err)
	}
	c.logger.Info("tracker issue created", zap.String("issue_key", parsed.Key))
	return &CreatedIssue{Key: parsed.Key, ID: parsed.ID}, nil
}

func (c *httpClient) GetIssue(ctx context.Context, key string, fieldNames []string) (*Issue, error) {
	endpoint := c.baseURL + "/rest/api/3/issue/" + url.PathEscape(key)
	if len(fieldNames) > 0 {
		endpoint += "?fields=" + url.QueryEscape(strings.Join(fieldNames, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed issueResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode issue response: %w", err)
	}

	return &Issue{
		Key:      parsed.Key,
		ID:       parsed.ID,
		Status:   parsed.Fields.Status.Name,
		Priority: parsed.Fields.Priority.Name,
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, `\"`)

func (c *httpClient) UploadAttachment(ctx context.Context, key, fileName, mimeType string, data []byte) error {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(fileName)))
	header.Set("Content-Type", mimeType)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	endpoint := c.baseURL + "/rest/api/3/issue/" + url.PathEscape(key) + "/attachments"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "no-check")

	if _, err := c.do(req); err != nil {
		return err
	}
	c.logger.Debug("attachment uploaded",
		zap.String("issue_key", key),
		zap.String("file_name", fileName),
		zap.String("mime_type", mimeType),
	)
	return nil
}

func (c *httpClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
