// Package ocr extracts plain text from rendered page images using the
// tesseract binary. The engine must be usable at process start; per-image
// recognition failures are left to the caller to absorb.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/mihirb23/mercer/internal/utils"
)

// minDimension is the smallest acceptable long edge before recognition.
// Smaller scans are upscaled isotropically or accuracy drops off sharply.
const minDimension = 1600

const engineName = "tesseract"

// Engine runs OCR over one raster page image.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Name() string
	Version() string
	Lang() string
}

type tesseractEngine struct {
	lang    string
	version string
	logger  *utils.Logger
}

// New probes the tesseract binary and its version. Any failure here is fatal
// to startup: without a recognizer the pipeline cannot run at all.
func New(lang string, logger *utils.Logger) (Engine, error) {
	if _, err := exec.LookPath(engineName); err != nil {
		return nil, fmt.Errorf("tesseract not found on PATH: %w", err)
	}

	out, err := exec.Command(engineName, "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("tesseract not usable: %w", err)
	}
	version := parseVersion(string(out))
	if version == "" {
		return nil, fmt.Errorf("could not determine tesseract version from %q", firstLine(string(out)))
	}

	logger.Info("OCR ready", "engine", engineName, "version", version, "lang", lang)
	return &tesseractEngine{lang: lang, version: version, logger: logger}, nil
}

func (e *tesseractEngine) Name() string    { return engineName }
func (e *tesseractEngine) Version() string { return e.version }
func (e *tesseractEngine) Lang() string    { return e.lang }

// Recognize OCRs one PNG page. Layout segmentation is tuned for block text
// (psm 4), line endings are normalized to LF and surrounding whitespace
// trimmed.
func (e *tesseractEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	prepared, err := prepareImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to prepare image: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "mercer-ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inputPath := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(inputPath, prepared, 0o600); err != nil {
		return "", fmt.Errorf("failed to write scratch image: %w", err)
	}

	cmd := exec.CommandContext(ctx, engineName,
		inputPath,
		"stdout",
		"-l", e.lang,
		"--psm", "4",
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %v: %s", err, firstLine(stderr.String()))
	}

	text := normalizeText(out.String())
	e.logger.Debug("OCR complete", "chars", len(text))
	return text, nil
}

// prepareImage converts the page to RGB and upscales small scans so the long
// edge reaches minDimension.
func prepareImage(data []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	longest := w
	if h > longest {
		longest = h
	}

	dstW, dstH := w, h
	if longest < minDimension {
		scale := float64(minDimension) / float64(longest)
		dstW = int(float64(w) * scale)
		dstH = int(float64(h) * scale)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// parseVersion pulls the version token from `tesseract --version`, whose
// first line looks like "tesseract 5.3.4".
func parseVersion(out string) string {
	fields := strings.Fields(firstLine(out))
	if len(fields) >= 2 && fields[0] == engineName {
		return fields[1]
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
