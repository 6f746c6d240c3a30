package prescription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const ocrTimeout = 60 * time.Second

var ErrEmptyImage = errors.New("empty image")

// Reader extracts a prescription draft from a label photo.
type Reader interface {
	Read(ctx context.Context, img []byte, mimeType string) (Draft, error)
}

// textDetector returns the full text found in an image.
type textDetector interface {
	DetectText(ctx context.Context, img []byte) (string, error)
	Close() error
}

type VisionReader struct {
	log      *zap.SugaredLogger
	detector textDetector
}

// NewVisionReader connects to Google Cloud Vision. Credentials come from
// opts or, when none are given, from the environment.
func NewVisionReader(ctx context.Context, log *zap.SugaredLogger, opts ...option.ClientOption) (*VisionReader, error) {
	if len(opts) == 0 {
		opts = ClientOptionsFromEnv()
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return newVisionReader(log, &visionDetector{client: client}), nil
}

func newVisionReader(log *zap.SugaredLogger, d textDetector) *VisionReader {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &VisionReader{log: log.With("service", "prescription.Vision"), detector: d}
}

func (r *VisionReader) Close() error {
	if r == nil || r.detector == nil {
		return nil
	}
	return r.detector.Close()
}

func (r *VisionReader) Read(ctx context.Context, img []byte, mimeType string) (Draft, error) {
	if len(img) == 0 {
		return Draft{}, ErrEmptyImage
	}

	ctx, cancel := context.WithTimeout(ctx, ocrTimeout)
	defer cancel()

	text, err := r.detector.DetectText(ctx, img)
	if err != nil {
		r.log.Errorw("ocr failed", "mime_type", mimeType, "error", err)
		return Draft{}, err
	}
	r.log.Debugw("ocr done", "mime_type", mimeType, "chars", len(text))

	return ParseText(text)
}

type visionDetector struct {
	client *vision.ImageAnnotatorClient
}

func (v *visionDetector) DetectText(ctx context.Context, img []byte) (string, error) {
	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{Content: img},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{req},
	})
	if err != nil {
		return "", fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return r0.FullTextAnnotation.Text, nil
}

func (v *visionDetector) Close() error {
	return v.client.Close()
}

// ClientOptionsFromEnv reads GOOGLE_APPLICATION_CREDENTIALS_JSON (inline
// JSON) or GOOGLE_APPLICATION_CREDENTIALS (inline JSON or a file path).
func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	opts := []option.ClientOption{}
	if creds == "" {
		return opts
	}
	if strings.HasPrefix(creds, "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	} else {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	return opts
}
