package models

import "time"

// Document is the registry record written after a successful ingestion. The
// authoritative provenance lives in the object metadata attached to each
// stored artifact; this row exists for listing and lookup only.
type Document struct {
	DocID          string    `json:"doc_id" db:"doc_id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	Filename       string    `json:"filename" db:"filename"`
	ByteSize       int64     `json:"byte_size" db:"byte_size"`
	PageCount      int       `json:"page_count" db:"page_count"`
	PDFKey         string    `json:"pdf_key" db:"pdf_key"`
	UploadedAt     time.Time `json:"uploaded_at" db:"uploaded_at"`
}

// IngestResult summarizes one completed document ingestion.
type IngestResult struct {
	ConversationID string `json:"conversation_id"`
	DocID          string `json:"doc_id"`
	PDFKey         string `json:"pdf_key"`
	PagesCount     int    `json:"pages_count"`
}

// PageInfo resolves one page-image key referenced by the assistant back into
// human-readable provenance.
type PageInfo struct {
	PageKey    string `json:"page_key"`
	PDFName    string `json:"pdf_name,omitempty"`
	PageNumber string `json:"page_number,omitempty"`
}

// AnswerResult is the downstream assistant response passed through untouched,
// plus the enrichment fields this service adds (page_image_urls, page_info).
// Downstream owns its own schema, so the payload stays an open object.
type AnswerResult map[string]interface{}

// PagesUsed extracts the page-image keys the assistant cited as evidence.
func (r AnswerResult) PagesUsed() []string {
	raw, ok := r["pages_used"].([]interface{})
	if !ok {
		return nil
	}
	var keys []string
	for _, v := range raw {
		if k, ok := v.(string); ok && k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
