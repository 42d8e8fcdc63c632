package services

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// OCRService extracts text from stored objects through the Vision API.
type OCRService struct {
	svc *vision.Service
}

func NewOCRService(ctx context.Context, credentialsJSON []byte) (*OCRService, error) {
	var opts []option.ClientOption
	if len(credentialsJSON) > 0 {
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	return &OCRService{svc: svc}, nil
}

// ExtractText runs document text detection against an already-stored object
// (gs:// URI). An object with no detectable text yields "", not an error.
func (o *OCRService) ExtractText(ctx context.Context, gsURI string) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image: &vision.Image{
					Source: &vision.ImageSource{ImageUri: gsURI},
				},
				Features: []*vision.Feature{
					{Type: "DOCUMENT_TEXT_DETECTION"},
				},
			},
		},
	}

	resp, err := o.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("ocr: annotate %s: %w", gsURI, err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return "", fmt.Errorf("ocr: annotate %s: %s", gsURI, r.Error.Message)
	}
	if r.FullTextAnnotation == nil {
		return "", nil
	}
	return r.FullTextAnnotation.Text, nil
}
