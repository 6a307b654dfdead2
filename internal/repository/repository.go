package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/mihirb23/mercer/internal/models"
)

// Repository is the document registry. Artifact metadata in object storage
// remains the source of truth for provenance; this index only serves listing
// and lookup.
type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, docID string) (*models.Document, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.Document, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (doc_id, conversation_id, filename, byte_size, page_count, pdf_key, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.DocID,
		doc.ConversationID,
		doc.Filename,
		doc.ByteSize,
		doc.PageCount,
		doc.PDFKey,
		doc.UploadedAt,
	)

	return err
}

func (r *repository) GetByID(ctx context.Context, docID string) (*models.Document, error) {
	var doc models.Document

	query := `
		SELECT doc_id, conversation_id, filename, byte_size, page_count, pdf_key, uploaded_at
		FROM documents
		WHERE doc_id = $1
	`

	err := r.db.GetContext(ctx, &doc, query, docID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func (r *repository) ListByConversation(ctx context.Context, conversationID string) ([]models.Document, error) {
	var docs []models.Document

	query := `
		SELECT doc_id, conversation_id, filename, byte_size, page_count, pdf_key, uploaded_at
		FROM documents
		WHERE conversation_id = $1
		ORDER BY uploaded_at DESC
	`

	if err := r.db.SelectContext(ctx, &docs, query, conversationID); err != nil {
		return nil, err
	}

	return docs, nil
}
