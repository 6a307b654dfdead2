package renderer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/mihirb23/mercer/internal/utils"
)

// DPI is the fixed rendering density for page images.
const DPI = 400

// RenderError marks malformed or unsupported document bytes. Callers report
// it as a client error rather than a server failure.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("could not render document: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Renderer rasterizes PDF pages to PNG via poppler's pdftoppm.
type Renderer interface {
	Render(ctx context.Context, data []byte) ([][]byte, error)
}

type popplerRenderer struct {
	logger *utils.Logger
}

// New probes for the pdftoppm binary; a missing binary is a startup failure,
// not something to discover on the first upload.
func New(logger *utils.Logger) (Renderer, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, fmt.Errorf("pdftoppm not found on PATH: %w", err)
	}
	return &popplerRenderer{logger: logger}, nil
}

// Render validates the document and returns one PNG per page, ordered by page
// number. The scratch directory is removed on every exit path.
func (r *popplerRenderer) Render(ctx context.Context, data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, &RenderError{Err: fmt.Errorf("empty document")}
	}

	pageCount, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, &RenderError{Err: err}
	}
	if pageCount == 0 {
		return nil, &RenderError{Err: fmt.Errorf("document has no pages")}
	}

	tmpDir, err := os.MkdirTemp("", "mercer-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	srcPath := filepath.Join(tmpDir, "source.pdf")
	if err := os.WriteFile(srcPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write scratch document: %w", err)
	}

	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-r", strconv.Itoa(DPI),
		"-png",
		srcPath,
		filepath.Join(tmpDir, "page"),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &RenderError{Err: fmt.Errorf("pdftoppm: %v: %s", err, stderr.String())}
	}

	files, err := filepath.Glob(filepath.Join(tmpDir, "page-*.png"))
	if err != nil || len(files) == 0 {
		return nil, &RenderError{Err: fmt.Errorf("pdftoppm produced no pages")}
	}
	// pdftoppm zero-pads page numbers uniformly, so lexical order is page order.
	sort.Strings(files)
	if len(files) != pageCount {
		r.logger.Warn("rendered page count differs from document page count",
			"rendered", len(files), "expected", pageCount)
	}

	pages := make([][]byte, 0, len(files))
	for _, f := range files {
		img, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read rendered page %s: %w", filepath.Base(f), err)
		}
		pages = append(pages, img)
	}

	r.logger.Debug("document rendered", "pages", len(pages), "dpi", DPI)
	return pages, nil
}
