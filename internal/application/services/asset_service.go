package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/AtRiskMedia/pagebuilder-go/internal/application/editor"
	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

var ErrNotImage = errors.New("element is not an image")

// ImageProcessor writes uploads and their responsive variants
type ImageProcessor interface {
	ProcessVariants(data, name string) (*media.ProcessedImage, error)
	Remove(img *media.ProcessedImage)
}

// AssetService attaches uploaded images to img elements
type AssetService struct {
	images ImageProcessor
	logger *logging.ChanneledLogger
}

func NewAssetService(images ImageProcessor, logger *logging.ChanneledLogger) *AssetService {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &AssetService{images: images, logger: logger}
}

// AttachImage stores dataURL with its breakpoint variants and points the
// element's src and srcset at them in one undoable step
func (s *AssetService) AttachImage(ctx context.Context, session *editor.Session, elementID, dataURL string) (*media.ProcessedImage, error) {
	el, ok := session.Element(elementID)
	if !ok {
		return nil, canvas.ErrElementNotFound
	}
	if el.Tag != "img" {
		return nil, fmt.Errorf("%w: %s is <%s>", ErrNotImage, elementID, el.Tag)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := s.images.ProcessVariants(dataURL, elementID)
	if err != nil {
		s.logger.LogError(logging.ChannelAssets, "attach_image", err, session.ID(), map[string]any{"elementId": elementID})
		return nil, err
	}

	changes := map[string]string{"src": img.Src, "srcset": img.SrcSet}
	if img.SrcSet != "" {
		changes["sizes"] = "100vw"
	}
	if !session.SetAttributes(elementID, changes) {
		// the element went away while the variants were generated
		s.images.Remove(img)
		return nil, canvas.ErrElementNotFound
	}

	s.logger.Assets().Info("Image attached", "sessionId", session.ID(), "elementId", elementID,
		"src", img.Src, "variants", len(img.Variants))
	return img, nil
}
