package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mihirb23/mercer/internal/config"
	"github.com/mihirb23/mercer/internal/handlers"
	"github.com/mihirb23/mercer/internal/middleware"
	"github.com/mihirb23/mercer/internal/services"
	"github.com/mihirb23/mercer/internal/utils"
)

func NewRouter(chatService services.ChatService, cfg *config.Config, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(middleware.Recovery(logger))

	chatHandler := handlers.NewChatHandler(chatService, logger, cfg.MaxFileSize)

	r.HandleFunc("/", rootStatus).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	api.HandleFunc("/chat", chatHandler.HandleChat).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/documents", chatHandler.ListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", chatHandler.GetDocument).Methods(http.MethodGet)

	return r
}

func rootStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"mercer backend running","time":%q}`, time.Now().UTC().Format(time.RFC3339))
}
