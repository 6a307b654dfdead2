package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mihirb23/mercer/internal/services"
	"github.com/mihirb23/mercer/internal/utils"
)

type ChatHandler struct {
	service     services.ChatService
	logger      *utils.Logger
	maxFileSize int64
}

func NewChatHandler(service services.ChatService, logger *utils.Logger, maxFileSize int64) *ChatHandler {
	return &ChatHandler{
		service:     service,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// HandleChat accepts a multipart form with the query text, an optional
// conversation id, and an optional PDF attachment.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	// Reject oversized requests early, before buffering anything.
	if r.ContentLength > h.maxFileSize {
		h.respondError(w, utils.NewBadRequestError("Request exceeds the upload size limit"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			h.respondError(w, utils.NewBadRequestError("Request exceeds the upload size limit"))
			return
		}
		h.respondError(w, utils.NewBadRequestError("Invalid form data"))
		return
	}

	query := strings.TrimSpace(r.FormValue("human"))
	if query == "" {
		h.respondError(w, utils.NewBadRequestError("Field 'human' is required"))
		return
	}

	req := &services.ChatRequest{
		ConversationID: strings.TrimSpace(r.FormValue("conversation_id")),
		Query:          query,
		Filename:       strings.TrimSpace(r.FormValue("original_filename")),
	}

	file, header, err := r.FormFile("pdf_file")
	if err == nil {
		defer file.Close()

		data, readErr := io.ReadAll(file)
		if readErr != nil {
			h.respondError(w, utils.NewBadRequestError("Could not read uploaded file"))
			return
		}
		if len(data) == 0 {
			h.respondError(w, utils.NewBadRequestError("Uploaded document is empty"))
			return
		}

		req.Document = data
		if req.Filename == "" {
			req.Filename = header.Filename
		}

		h.logger.Info("Chat upload received",
			"filename", req.Filename,
			"bytes", len(data),
			"conversation_id", req.ConversationID)
	} else if err != http.ErrMissingFile {
		h.respondError(w, utils.NewBadRequestError("Could not read uploaded file"))
		return
	}

	answer, err := h.service.Chat(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, answer)
}

func (h *ChatHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, utils.NewBadRequestError("Document ID is required"))
		return
	}

	doc, err := h.service.GetDocument(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, doc)
}

func (h *ChatHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.ListDocuments(r.Context(), r.URL.Query().Get("conversation_id"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, docs)
}

func (h *ChatHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (h *ChatHandler) respondError(w http.ResponseWriter, err error) {
	var status int
	var message string

	switch e := err.(type) {
	case *utils.AppError:
		status = e.StatusCode
		message = e.Message
	default:
		status = http.StatusInternalServerError
		message = "Internal server error"
	}

	h.logger.Error("Request error", "status", status, "error", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
