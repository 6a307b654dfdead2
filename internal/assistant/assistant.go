// Package assistant calls the downstream reasoning backend and enriches its
// answer with signed URLs and provenance for the pages it cited.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mihirb23/mercer/internal/config"
	"github.com/mihirb23/mercer/internal/models"
	"github.com/mihirb23/mercer/internal/storage"
	"github.com/mihirb23/mercer/internal/utils"
)

// StubAnswer is returned when no backend is configured. The service stays
// available in degraded mode instead of failing every chat request.
const StubAnswer = "(stub) assistant backend not configured."

type Assistant interface {
	Ask(ctx context.Context, conversationID, query, docID string) (models.AnswerResult, error)
}

type client struct {
	baseURL    string
	token      string
	store      storage.Gateway
	logger     *utils.Logger
	httpClient *http.Client
}

func New(cfg *config.Config, store storage.Gateway, logger *utils.Logger) Assistant {
	return &client{
		baseURL: strings.TrimRight(cfg.AssistantURL, "/"),
		token:   cfg.AssistantToken,
		store:   store,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: cfg.AssistantTimeout,
		},
	}
}

type askRequest struct {
	ConversationID string `json:"conversation_id"`
	Human          string `json:"human"`
	DocID          string `json:"doc_id,omitempty"`
}

// Ask forwards the query to the backend and resolves any cited page keys.
// Backend failures surface as upstream-dependency errors; enrichment failures
// never fail the call.
func (c *client) Ask(ctx context.Context, conversationID, query, docID string) (models.AnswerResult, error) {
	if c.baseURL == "" {
		return models.AnswerResult{
			"ai":              StubAnswer,
			"conversation_id": conversationID,
		}, nil
	}

	reqBody := askRequest{
		ConversationID: conversationID,
		Human:          query,
		DocID:          docID,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/ingest-and-answer", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("Assistant request", "url", req.URL.String(), "conversation_id", conversationID, "doc_id", docID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Assistant backend unreachable", "error", err)
		return nil, utils.NewBadGatewayError(fmt.Sprintf("Assistant backend error: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NewBadGatewayError(fmt.Sprintf("Assistant backend error: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("Assistant backend error", "status", resp.StatusCode, "body", string(body))
		return nil, utils.NewBadGatewayError(fmt.Sprintf("Assistant backend returned status %d", resp.StatusCode))
	}

	var answer models.AnswerResult
	if err := json.Unmarshal(body, &answer); err != nil {
		c.logger.Error("Assistant backend returned invalid JSON", "error", err)
		return nil, utils.NewBadGatewayError("Assistant backend returned an unreadable response")
	}

	c.enrich(ctx, answer)

	return answer, nil
}

// enrich resolves the cited page-image keys into signed URLs and page-info
// records. Each key resolves independently: one failure drops that key only
// and never reorders or removes the others.
func (c *client) enrich(ctx context.Context, answer models.AnswerResult) {
	if _, ok := answer["pages_used"]; !ok {
		return
	}
	pagesUsed := answer.PagesUsed()

	urls := make([]string, 0, len(pagesUsed))
	for _, key := range pagesUsed {
		signed, err := c.store.Sign(ctx, key)
		if err != nil {
			c.logger.Warn("Failed to sign page key", "error", err, "key", key)
			continue
		}
		urls = append(urls, signed)
	}
	answer["page_image_urls"] = urls

	pageInfo := make([]models.PageInfo, 0, len(pagesUsed))
	for _, key := range pagesUsed {
		meta, err := c.store.ReadMetadata(ctx, key)
		if err != nil {
			c.logger.Warn("Failed to read page metadata", "error", err, "key", key)
			continue
		}
		pageInfo = append(pageInfo, models.PageInfo{
			PageKey:    key,
			PDFName:    storage.MetadataValue(meta, "original_filename"),
			PageNumber: storage.MetadataValue(meta, "page_number"),
		})
	}
	answer["page_info"] = pageInfo
}
