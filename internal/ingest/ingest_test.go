package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mihirb23/mercer/internal/models"
	"github.com/mihirb23/mercer/internal/renderer"
	"github.com/mihirb23/mercer/internal/utils"
)

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, key, data, contentType, metadata)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) Sign(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) ReadMetadata(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

type mockRenderer struct{ mock.Mock }

func (m *mockRenderer) Render(ctx context.Context, data []byte) ([][]byte, error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]byte), args.Error(1)
}

type mockEngine struct{ mock.Mock }

func (m *mockEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	args := m.Called(ctx, image)
	return args.String(0), args.Error(1)
}

func (m *mockEngine) Name() string    { return "tesseract" }
func (m *mockEngine) Version() string { return "5.3.4" }
func (m *mockEngine) Lang() string    { return "eng" }

func keyPrefix(prefix string) interface{} {
	return mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, prefix) })
}

func countPutsWithPrefix(gw *mockGateway, prefix string) int {
	n := 0
	for _, call := range gw.Calls {
		if call.Method != "Put" {
			continue
		}
		if key, ok := call.Arguments.Get(1).(string); ok && strings.HasPrefix(key, prefix) {
			n++
		}
	}
	return n
}

func newTestIngestor(gw *mockGateway, r *mockRenderer, e *mockEngine) *Ingestor {
	return New(gw, r, e, utils.NewLogger("error"))
}

func TestIngestUploadsEveryPage(t *testing.T) {
	gw := new(mockGateway)
	r := new(mockRenderer)
	e := new(mockEngine)

	pages := [][]byte{[]byte("png1"), []byte("png2"), []byte("png3")}
	r.On("Render", mock.Anything, mock.Anything).Return(pages, nil)
	e.On("Recognize", mock.Anything, mock.Anything).Return("some text", nil)
	gw.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("https://signed.example/obj", nil)

	result, err := newTestIngestor(gw, r, e).Ingest(context.Background(), "conv1", []byte("%PDF-"), "report.pdf")
	require.NoError(t, err)

	assert.Equal(t, "conv1", result.ConversationID)
	assert.Equal(t, 3, result.PagesCount)
	assert.Equal(t, "pdfs/conv1/"+result.DocID+".pdf", result.PDFKey)

	assert.Equal(t, 1, countPutsWithPrefix(gw, "pdfs/"))
	assert.Equal(t, 3, countPutsWithPrefix(gw, "pages/conv1/"+result.DocID+"/"))
	assert.Equal(t, 3, countPutsWithPrefix(gw, "text/conv1/"+result.DocID+"/"))
}

func TestIngestRejectsEmptyDocument(t *testing.T) {
	gw := new(mockGateway)
	r := new(mockRenderer)
	e := new(mockEngine)

	result, err := newTestIngestor(gw, r, e).Ingest(context.Background(), "conv1", nil, "report.pdf")
	assert.Nil(t, result)

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)

	gw.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	r.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestIngestTreatsRenderFailureAsClientError(t *testing.T) {
	gw := new(mockGateway)
	r := new(mockRenderer)
	e := new(mockEngine)

	gw.On("Put", mock.Anything, keyPrefix("pdfs/"), mock.Anything, mock.Anything, mock.Anything).Return("https://signed.example/obj", nil)
	r.On("Render", mock.Anything, mock.Anything).Return(nil, &renderer.RenderError{Err: errors.New("broken xref")})

	result, err := newTestIngestor(gw, r, e).Ingest(context.Background(), "conv1", []byte("junk"), "report.pdf")
	assert.Nil(t, result)

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestIngestContinuesWhenOCRFails(t *testing.T) {
	gw := new(mockGateway)
	r := new(mockRenderer)
	e := new(mockEngine)

	pages := [][]byte{[]byte("png1"), []byte("png2")}
	r.On("Render", mock.Anything, mock.Anything).Return(pages, nil)
	e.On("Recognize", mock.Anything, mock.Anything).Return("", errors.New("ocr blew up"))
	gw.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("https://signed.example/obj", nil)

	result, err := newTestIngestor(gw, r, e).Ingest(context.Background(), "conv1", []byte("%PDF-"), "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, result.PagesCount)

	// Empty text still gets its artifact uploaded.
	assert.Equal(t, 2, countPutsWithPrefix(gw, "pages/"))
	assert.Equal(t, 2, countPutsWithPrefix(gw, "text/"))
	for _, call := range gw.Calls {
		if key, ok := call.Arguments.Get(1).(string); ok && strings.HasPrefix(key, "text/") {
			assert.Empty(t, call.Arguments.Get(2).([]byte))
		}
	}
}

func TestIngestAbortsWhenPageImageUploadFails(t *testing.T) {
	gw := new(mockGateway)
	r := new(mockRenderer)
	e := new(mockEngine)

	pages := [][]byte{[]byte("png1"), []byte("png2")}
	r.On("Render", mock.Anything, mock.Anything).Return(pages, nil)
	e.On("Recognize", mock.Anything, mock.Anything).Return("text", nil)
	gw.On("Put", mock.Anything, keyPrefix("pdfs/"), mock.Anything, mock.Anything, mock.Anything).Return("https://signed.example/obj", nil)
	gw.On("Put", mock.Anything, keyPrefix("pages/"), mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("store down"))
	gw.On("Put", mock.Anything, keyPrefix("text/"), mock.Anything, mock.Anything, mock.Anything).Return("https://signed.example/obj", nil)

	result, err := newTestIngestor(gw, r, e).Ingest(context.Background(), "conv1", []byte("%PDF-"), "report.pdf")
	assert.Nil(t, result)

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 500, appErr.StatusCode)
}

func TestIngestLosesNothingWhenTextUploadFails(t *testing.T) {
	gw := new(mockGateway)
	r := new(mockRenderer)
	e := new(mockEngine)

	pages := [][]byte{[]byte("png1"), []byte("png2")}
	r.On("Render", mock.Anything, mock.Anything).Return(pages, nil)
	e.On("Recognize", mock.Anything, mock.Anything).Return("text", nil)
	gw.On("Put", mock.Anything, keyPrefix("pdfs/"), mock.Anything, mock.Anything, mock.Anything).Return("https://signed.example/obj", nil)
	gw.On("Put", mock.Anything, keyPrefix("pages/"), mock.Anything, mock.Anything, mock.Anything).Return("https://signed.example/obj", nil)
	gw.On("Put", mock.Anything, keyPrefix("text/"), mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("store hiccup"))

	result, err := newTestIngestor(gw, r, e).Ingest(context.Background(), "conv1", []byte("%PDF-"), "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, &models.IngestResult{
		ConversationID: "conv1",
		DocID:          result.DocID,
		PDFKey:         "pdfs/conv1/" + result.DocID + ".pdf",
		PagesCount:     2,
	}, result)
}
