package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
)

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newTestProcessor(t *testing.T) (*ImageProcessor, string) {
	dir := t.TempDir()
	p := NewImageProcessor(dir, nil)
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return p, dir
}

func fileFor(dir, url string) string {
	return filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/media/")))
}

func TestProcessVariantsPerBreakpoint(t *testing.T) {
	p, dir := newTestProcessor(t)

	img, err := p.ProcessVariants(pngDataURL(t, 900, 300), "Hero Shot.png")
	require.NoError(t, err)

	assert.Equal(t, "/media/images/originals/hero-shot-1700000000000.png", img.Original)
	assert.Equal(t, 900, img.Width)
	assert.Equal(t, 300, img.Height)
	require.Len(t, img.Variants, 3)

	widths := map[canvas.Breakpoint]int{}
	for _, v := range img.Variants {
		widths[v.Breakpoint] = v.Width
		assert.FileExists(t, fileFor(dir, v.URL))
	}
	assert.Equal(t, 375, widths[canvas.BreakpointMobile])
	assert.Equal(t, 768, widths[canvas.BreakpointTablet])
	// never upscaled past the original
	assert.Equal(t, 900, widths[canvas.BreakpointDesktop])

	assert.Equal(t, "/media/images/variants/hero-shot-1700000000000_900px.webp", img.Src)
	assert.Len(t, strings.Split(img.SrcSet, ", "), 3)
	assert.Contains(t, img.SrcSet, "_375px.webp 375w")
	assert.FileExists(t, fileFor(dir, img.Original))
}

func TestSmallImageCollapsesVariants(t *testing.T) {
	p, _ := newTestProcessor(t)

	img, err := p.ProcessVariants(pngDataURL(t, 40, 20), "icon")
	require.NoError(t, err)
	require.Len(t, img.Variants, 3)
	for _, v := range img.Variants {
		assert.Equal(t, 40, v.Width)
		assert.Equal(t, img.Src, v.URL)
	}
	assert.Equal(t, "/media/images/variants/icon-1700000000000_40px.webp 40w", img.SrcSet)
}

func TestRemoveDeletesAllFiles(t *testing.T) {
	p, dir := newTestProcessor(t)

	img, err := p.ProcessVariants(pngDataURL(t, 500, 100), "banner")
	require.NoError(t, err)
	p.Remove(img)

	_, err = os.Stat(fileFor(dir, img.Original))
	assert.True(t, os.IsNotExist(err))
	for _, v := range img.Variants {
		_, err = os.Stat(fileFor(dir, v.URL))
		assert.True(t, os.IsNotExist(err))
	}
}

func TestSVGStoredWithoutVariants(t *testing.T) {
	p, dir := newTestProcessor(t)
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"/>`

	img, err := p.ProcessVariants("data:image/svg+xml;base64,"+base64.StdEncoding.EncodeToString([]byte(svg)), "logo")
	require.NoError(t, err)
	assert.Empty(t, img.Variants)
	assert.Empty(t, img.SrcSet)
	assert.Equal(t, img.Original, img.Src)

	body, err := os.ReadFile(fileFor(dir, img.Src))
	require.NoError(t, err)
	assert.Equal(t, svg, string(body))
}

func TestInvalidUploads(t *testing.T) {
	p, dir := newTestProcessor(t)

	_, err := p.ProcessVariants("", "x")
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = p.ProcessVariants("not a data url", "x")
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = p.ProcessVariants("data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("not a png")), "broken")
	assert.ErrorIs(t, err, ErrInvalidImage)

	// undecodable uploads leave nothing behind
	entries, err := os.ReadDir(filepath.Join(dir, "images", "originals"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
