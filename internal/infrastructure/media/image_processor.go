// Package media provides image processing utilities
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

const (
	originalsDir = "images/originals"
	variantsDir  = "images/variants"
	webpQuality  = 85
)

var (
	dataURLPattern = regexp.MustCompile(`^data:image/[\w.+-]+;base64,`)
	unsafeName     = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

	ErrEmptyImage   = errors.New("empty base64 data")
	ErrInvalidImage = errors.New("invalid image data")
)

// ImageVariant is one resized copy of an upload
type ImageVariant struct {
	Breakpoint canvas.Breakpoint `json:"breakpoint"`
	Width      int               `json:"width"`
	URL        string            `json:"url"`
}

// ProcessedImage describes the files written for one upload
type ProcessedImage struct {
	Original string         `json:"original"`
	Variants []ImageVariant `json:"variants"`
	Src      string         `json:"src"`
	SrcSet   string         `json:"srcset"`
	Width    int            `json:"width"`
	Height   int            `json:"height"`

	files []string
}

// ImageProcessor writes uploads under basePath and serves them from /media
type ImageProcessor struct {
	basePath string
	logger   *logging.ChanneledLogger
	now      func() time.Time
}

func NewImageProcessor(basePath string, logger *logging.ChanneledLogger) *ImageProcessor {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &ImageProcessor{basePath: basePath, logger: logger, now: time.Now}
}

// ProcessVariants saves the original of a base64 data URL and generates a
// webp variant per breakpoint width. Images are never upscaled, so small
// uploads collapse to fewer distinct variants. SVG uploads are stored as is
// and get no variants.
func (p *ImageProcessor) ProcessVariants(data, name string) (*ProcessedImage, error) {
	if data == "" {
		return nil, ErrEmptyImage
	}
	if !dataURLPattern.MatchString(data) {
		return nil, fmt.Errorf("%w: expected a base64 data URL", ErrInvalidImage)
	}

	ext := extractExtension(data)
	base := fmt.Sprintf("%s-%d", sanitizeName(name), p.now().UnixMilli())
	filename := base + "." + ext

	origDir := filepath.Join(p.basePath, filepath.FromSlash(originalsDir))
	if err := os.MkdirAll(origDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create originals directory: %w", err)
	}

	originalPath, err := writeDataURL(data, filename, origDir)
	if err != nil {
		return nil, err
	}
	out := &ProcessedImage{
		Original: mediaURL(originalsDir, filename),
		files:    []string{originalPath},
	}

	if ext == "svg" {
		out.Src = out.Original
		p.logger.Assets().Info("Stored SVG image", "file", filename)
		return out, nil
	}

	if err := p.generateVariants(originalPath, base, out); err != nil {
		p.Remove(out)
		return nil, err
	}

	p.logger.Assets().Info("Generated image variants", "file", filename, "variants", len(out.Variants), "width", out.Width)
	return out, nil
}

func (p *ImageProcessor) generateVariants(originalPath, base string, out *ProcessedImage) error {
	img, err := imaging.Open(originalPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	bounds := img.Bounds()
	out.Width, out.Height = bounds.Dx(), bounds.Dy()

	dir := filepath.Join(p.basePath, filepath.FromSlash(variantsDir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create variants directory: %w", err)
	}

	written := map[int]string{}
	var srcset []string
	for _, bp := range canvas.Breakpoints() {
		width := bp.Width()
		if width > out.Width {
			width = out.Width
		}

		url, ok := written[width]
		if !ok {
			variantName := fmt.Sprintf("%s_%dpx.webp", base, width)
			path := filepath.Join(dir, variantName)
			resized := imaging.Resize(img, width, 0, imaging.Lanczos)
			if err := webp.Save(path, resized, &webp.Options{Quality: webpQuality}); err != nil {
				return fmt.Errorf("failed to save webp variant %s: %w", variantName, err)
			}
			out.files = append(out.files, path)
			url = mediaURL(variantsDir, variantName)
			written[width] = url
			srcset = append(srcset, fmt.Sprintf("%s %dw", url, width))
		}
		out.Variants = append(out.Variants, ImageVariant{Breakpoint: bp, Width: width, URL: url})
		if bp == canvas.BreakpointDesktop {
			out.Src = url
		}
	}
	out.SrcSet = strings.Join(srcset, ", ")
	return nil
}

// Remove deletes every file written for img. Missing files are ignored.
func (p *ImageProcessor) Remove(img *ProcessedImage) {
	if img == nil {
		return
	}
	for _, path := range img.files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.logger.Assets().Warn("Failed to remove image file", "path", path, "error", err.Error())
		}
	}
}

// writeDataURL decodes the payload of a data URL into targetDir
func writeDataURL(data, filename, targetDir string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(dataURLPattern.ReplaceAllString(data, ""))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(decoded) == 0 {
		return "", ErrEmptyImage
	}
	fullPath := filepath.Join(targetDir, filename)
	if err := os.WriteFile(fullPath, decoded, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return fullPath, nil
}

// extractExtension auto-detects file extension from MIME type
func extractExtension(data string) string {
	switch {
	case strings.HasPrefix(data, "data:image/svg+xml"):
		return "svg"
	case strings.HasPrefix(data, "data:image/jpeg"), strings.HasPrefix(data, "data:image/jpg"):
		return "jpg"
	case strings.HasPrefix(data, "data:image/gif"):
		return "gif"
	case strings.HasPrefix(data, "data:image/webp"):
		return "webp"
	}
	// Fallback to PNG
	return "png"
}

func sanitizeName(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-")
	if name == "" {
		return "image"
	}
	return strings.ToLower(name)
}

func mediaURL(dir, filename string) string {
	return "/media/" + dir + "/" + filename
}
