package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mihirb23/mercer/internal/models"
	"github.com/mihirb23/mercer/internal/services"
	"github.com/mihirb23/mercer/internal/utils"
)

type mockChatService struct{ mock.Mock }

func (m *mockChatService) Chat(ctx context.Context, req *services.ChatRequest) (models.AnswerResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.AnswerResult), args.Error(1)
}

func (m *mockChatService) GetDocument(ctx context.Context, docID string) (*models.Document, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *mockChatService) ListDocuments(ctx context.Context, conversationID string) ([]models.Document, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Document), args.Error(1)
}

func multipartChat(t *testing.T, fields map[string]string, pdf []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if pdf != nil {
		part, err := w.CreateFormFile("pdf_file", "upload.pdf")
		require.NoError(t, err)
		_, err = part.Write(pdf)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHandleChatWithoutDocument(t *testing.T) {
	svc := new(mockChatService)
	svc.On("Chat", mock.Anything, mock.MatchedBy(func(req *services.ChatRequest) bool {
		return req.Query == "hello" && req.ConversationID == "conv1" && req.Document == nil
	})).Return(models.AnswerResult{"ai": "hi"}, nil)

	h := NewChatHandler(svc, utils.NewLogger("error"), 1<<20)
	rec := httptest.NewRecorder()
	h.HandleChat(rec, multipartChat(t, map[string]string{"human": "hello", "conversation_id": "conv1"}, nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hi", resp["ai"])
}

func TestHandleChatWithDocument(t *testing.T) {
	svc := new(mockChatService)
	svc.On("Chat", mock.Anything, mock.MatchedBy(func(req *services.ChatRequest) bool {
		return string(req.Document) == "%PDF-fake" && req.Filename == "report.pdf"
	})).Return(models.AnswerResult{"ai": "summary", "doc_id": "doc42"}, nil)

	h := NewChatHandler(svc, utils.NewLogger("error"), 1<<20)
	rec := httptest.NewRecorder()
	h.HandleChat(rec, multipartChat(t, map[string]string{
		"human":             "summarize this",
		"original_filename": "report.pdf",
	}, []byte("%PDF-fake")))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "doc42", resp["doc_id"])
}

func TestHandleChatFallsBackToUploadFilename(t *testing.T) {
	svc := new(mockChatService)
	svc.On("Chat", mock.Anything, mock.MatchedBy(func(req *services.ChatRequest) bool {
		return req.Filename == "upload.pdf"
	})).Return(models.AnswerResult{"ai": "ok"}, nil)

	h := NewChatHandler(svc, utils.NewLogger("error"), 1<<20)
	rec := httptest.NewRecorder()
	h.HandleChat(rec, multipartChat(t, map[string]string{"human": "q"}, []byte("%PDF-fake")))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandleChatRequiresQuery(t *testing.T) {
	svc := new(mockChatService)

	h := NewChatHandler(svc, utils.NewLogger("error"), 1<<20)
	rec := httptest.NewRecorder()
	h.HandleChat(rec, multipartChat(t, map[string]string{"conversation_id": "conv1"}, nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestHandleChatMapsAppErrors(t *testing.T) {
	svc := new(mockChatService)
	svc.On("Chat", mock.Anything, mock.Anything).
		Return(nil, utils.NewBadGatewayError("Assistant backend returned status 500"))

	h := NewChatHandler(svc, utils.NewLogger("error"), 1<<20)
	rec := httptest.NewRecorder()
	h.HandleChat(rec, multipartChat(t, map[string]string{"human": "q"}, nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Assistant backend returned status 500", resp["error"])
}

func TestHandleChatRejectsOversizedBody(t *testing.T) {
	svc := new(mockChatService)

	h := NewChatHandler(svc, utils.NewLogger("error"), 128)
	rec := httptest.NewRecorder()
	h.HandleChat(rec, multipartChat(t, map[string]string{"human": "q"}, bytes.Repeat([]byte("x"), 4096)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}
