package receipt

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/Veraticus/expensesbot/internal/common"
)

// OCR extracts the text of a receipt image. An empty result is valid.
type OCR interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// VisionOCR reads receipts with the Google Cloud Vision API.
type VisionOCR struct {
	svc *vision.Service
}

// NewVisionOCR creates a Vision client authenticated with an API key.
// Extra options are passed to the service (tests use option.WithEndpoint).
func NewVisionOCR(ctx context.Context, apiKey string, opts ...option.ClientOption) (*VisionOCR, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: vision API key", common.ErrNotConfigured)
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}
	return &VisionOCR{svc: svc}, nil
}

// ExtractText runs document text detection on image.
func (v *VisionOCR) ExtractText(ctx context.Context, image []byte) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: "DOCUMENT_TEXT_DETECTION"}},
		}},
	}

	resp, err := v.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: vision annotate: %v", common.ErrRemote, err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}

	first := resp.Responses[0]
	if first.Error != nil && first.Error.Message != "" {
		return "", fmt.Errorf("%w: vision: %s", common.ErrRemote, first.Error.Message)
	}
	if first.FullTextAnnotation != nil {
		return strings.TrimSpace(first.FullTextAnnotation.Text), nil
	}
	if len(first.TextAnnotations) > 0 {
		return strings.TrimSpace(first.TextAnnotations[0].Description), nil
	}
	return "", nil
}
