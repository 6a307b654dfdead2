package services

import (
	"context"
	"time"

	"github.com/mihirb23/mercer/internal/assistant"
	"github.com/mihirb23/mercer/internal/keys"
	"github.com/mihirb23/mercer/internal/models"
	"github.com/mihirb23/mercer/internal/repository"
	"github.com/mihirb23/mercer/internal/utils"
)

// ChatRequest is one inbound turn: a query plus an optional document payload.
type ChatRequest struct {
	ConversationID string
	Query          string
	Document       []byte
	Filename       string
}

type ChatService interface {
	Chat(ctx context.Context, req *ChatRequest) (models.AnswerResult, error)
	GetDocument(ctx context.Context, docID string) (*models.Document, error)
	ListDocuments(ctx context.Context, conversationID string) ([]models.Document, error)
}

// Ingestor is the document pipeline as this service consumes it.
type Ingestor interface {
	Ingest(ctx context.Context, conversationID string, data []byte, filename string) (*models.IngestResult, error)
}

type chatService struct {
	ingestor  Ingestor
	assistant assistant.Assistant
	repo      repository.Repository
	logger    *utils.Logger
}

func NewChatService(ingestor Ingestor, asst assistant.Assistant, repo repository.Repository, logger *utils.Logger) ChatService {
	return &chatService{
		ingestor:  ingestor,
		assistant: asst,
		repo:      repo,
		logger:    logger,
	}
}

// Chat ingests the attached document, if any, then asks the assistant. The
// registry write is derived data: a failure there is logged and the request
// carries on.
func (s *chatService) Chat(ctx context.Context, req *ChatRequest) (models.AnswerResult, error) {
	conv := keys.Conversation(req.ConversationID)

	var docID string
	if len(req.Document) > 0 {
		result, err := s.ingestor.Ingest(ctx, conv, req.Document, req.Filename)
		if err != nil {
			return nil, err
		}
		docID = result.DocID

		if err := s.repo.Create(ctx, &models.Document{
			DocID:          result.DocID,
			ConversationID: result.ConversationID,
			Filename:       req.Filename,
			ByteSize:       int64(len(req.Document)),
			PageCount:      result.PagesCount,
			PDFKey:         result.PDFKey,
			UploadedAt:     time.Now().UTC(),
		}); err != nil {
			s.logger.Warn("Failed to record document in registry", "error", err, "doc_id", result.DocID)
		}
	}

	answer, err := s.assistant.Ask(ctx, conv, req.Query, docID)
	if err != nil {
		return nil, err
	}

	if docID != "" {
		if _, ok := answer["doc_id"]; !ok {
			answer["doc_id"] = docID
		}
	}

	return answer, nil
}

func (s *chatService) GetDocument(ctx context.Context, docID string) (*models.Document, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		s.logger.Error("Failed to get document", "error", err, "doc_id", docID)
		return nil, utils.NewInternalError("Failed to retrieve document")
	}
	if doc == nil {
		return nil, utils.NewNotFoundError("Document not found")
	}

	return doc, nil
}

func (s *chatService) ListDocuments(ctx context.Context, conversationID string) ([]models.Document, error) {
	docs, err := s.repo.ListByConversation(ctx, keys.Conversation(conversationID))
	if err != nil {
		s.logger.Error("Failed to list documents", "error", err, "conversation_id", conversationID)
		return nil, utils.NewInternalError("Failed to list documents")
	}

	return docs, nil
}
