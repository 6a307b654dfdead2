package renderer

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihirb23/mercer/internal/utils"
)

func newTestRenderer(t *testing.T) Renderer {
	t.Helper()
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not installed")
	}
	r, err := New(utils.NewLogger("error"))
	require.NoError(t, err)
	return r
}

func TestRenderRejectsEmptyInput(t *testing.T) {
	r := newTestRenderer(t)

	pages, err := r.Render(context.Background(), nil)
	assert.Nil(t, pages)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
}

func TestRenderRejectsMalformedInput(t *testing.T) {
	r := newTestRenderer(t)

	pages, err := r.Render(context.Background(), []byte("definitely not a pdf"))
	assert.Nil(t, pages)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
}
