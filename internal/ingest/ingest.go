// Package ingest coordinates the document pipeline: original upload, page
// rendering, per-page image upload, OCR, and best-effort text upload.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mihirb23/mercer/internal/keys"
	"github.com/mihirb23/mercer/internal/models"
	"github.com/mihirb23/mercer/internal/ocr"
	"github.com/mihirb23/mercer/internal/renderer"
	"github.com/mihirb23/mercer/internal/storage"
	"github.com/mihirb23/mercer/internal/utils"
)

// pageWorkers bounds concurrent per-page processing. Keys and metadata do not
// depend on scheduling, so the result matches the sequential pipeline.
const pageWorkers = 4

type Ingestor struct {
	store    storage.Gateway
	renderer renderer.Renderer
	ocr      ocr.Engine
	logger   *utils.Logger
}

func New(store storage.Gateway, r renderer.Renderer, engine ocr.Engine, logger *utils.Logger) *Ingestor {
	return &Ingestor{
		store:    store,
		renderer: r,
		ocr:      engine,
		logger:   logger,
	}
}

// Ingest uploads the original document and every rendered page, running OCR
// along the way. The original document and page images are required; OCR text
// is best-effort.
func (ing *Ingestor) Ingest(ctx context.Context, conversationID string, data []byte, filename string) (*models.IngestResult, error) {
	if len(data) == 0 {
		return nil, utils.NewBadRequestError("Uploaded document is empty")
	}

	conv := keys.Conversation(conversationID)
	docID := utils.GenerateDocID()
	pdfKey := keys.PDF(conv, docID)

	ing.logger.Info("Starting ingestion",
		"conversation_id", conv,
		"doc_id", docID,
		"filename", filename,
		"bytes", len(data))

	docMeta := map[string]string{
		"original_filename": filename,
		"conversation_id":   conv,
		"doc_id":            docID,
		"uploaded_at":       nowISO(),
	}
	if _, err := ing.store.Put(ctx, pdfKey, data, "application/pdf", docMeta); err != nil {
		ing.logger.Error("Failed to upload original document", "error", err, "key", pdfKey)
		return nil, utils.NewInternalError("Failed to store document")
	}

	pages, err := ing.renderer.Render(ctx, data)
	if err != nil {
		var renderErr *renderer.RenderError
		if errors.As(err, &renderErr) {
			ing.logger.Warn("Document could not be rendered", "error", err, "doc_id", docID)
			return nil, utils.NewBadRequestError(fmt.Sprintf("Could not read document: %v", renderErr.Err))
		}
		ing.logger.Error("Renderer failed", "error", err, "doc_id", docID)
		return nil, utils.NewInternalError("Failed to render document pages")
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(pageWorkers)
	for i, img := range pages {
		pageNumber := i + 1
		img := img
		eg.Go(func() error {
			return ing.processPage(gctx, conv, docID, pdfKey, filename, pageNumber, img)
		})
	}
	if err := eg.Wait(); err != nil {
		ing.logger.Error("Failed to upload page images", "error", err, "doc_id", docID)
		return nil, utils.NewInternalError("Failed to store page images")
	}

	ing.logger.Info("Ingestion complete", "doc_id", docID, "pages", len(pages))

	return &models.IngestResult{
		ConversationID: conv,
		DocID:          docID,
		PDFKey:         pdfKey,
		PagesCount:     len(pages),
	}, nil
}

// processPage uploads one page image (required), then its OCR text
// (best-effort). A sibling page's failure cancels gctx, so remaining pages
// bail out before touching the store.
func (ing *Ingestor) processPage(ctx context.Context, conv, docID, pdfKey, filename string, page int, img []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pageMeta := map[string]string{
		"conversation_id":   conv,
		"doc_id":            docID,
		"page_number":       strconv.Itoa(page),
		"source_pdf_key":    pdfKey,
		"original_filename": filename,
	}

	imageKey := keys.PageImage(conv, docID, page)
	if _, err := ing.store.Put(ctx, imageKey, img, "image/png", pageMeta); err != nil {
		return fmt.Errorf("upload page image %s: %w", imageKey, err)
	}

	text, err := ing.ocr.Recognize(ctx, img)
	if err != nil {
		ing.logger.Warn("OCR failed, storing empty text", "error", err, "doc_id", docID, "page", page)
		text = ""
	}

	textMeta := map[string]string{
		"source_image_key": imageKey,
		"ocr_engine":       ing.ocr.Name(),
		"ocr_version":      ing.ocr.Version(),
		"ocr_lang":         ing.ocr.Lang(),
		"ocr_at":           nowISO(),
		"content_type":     "text/plain; charset=utf-8",
	}
	for k, v := range pageMeta {
		textMeta[k] = v
	}

	textKey := keys.PageText(conv, docID, page)
	if _, err := ing.store.Put(ctx, textKey, []byte(text), "text/plain; charset=utf-8", textMeta); err != nil {
		// Text artifacts are derived data; losing one must not lose the page.
		ing.logger.Warn("Failed to upload OCR text", "error", err, "key", textKey)
	}

	return nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
