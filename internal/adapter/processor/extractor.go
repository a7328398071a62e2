package processor

import (
	"context"
	"errors"

	"github.com/cwygoda/recipequeue/internal/adapter/api"
	"github.com/cwygoda/recipequeue/internal/domain"
)

var ErrWrongKind = errors.New("job kind not handled by extractor")

// VideoSubmitter submits a video for server-side recipe extraction.
type VideoSubmitter interface {
	SubmitVideo(ctx context.Context, videoID string) error
}

// ImageSubmitter uploads images for server-side recipe extraction.
type ImageSubmitter interface {
	SubmitImages(ctx context.Context, images []string) (*api.RecipeResult, error)
}

// VideoExtractor extracts recipes from video jobs.
type VideoExtractor struct {
	api VideoSubmitter
}

// NewVideoExtractor creates a new video extractor.
func NewVideoExtractor(api VideoSubmitter) *VideoExtractor {
	return &VideoExtractor{api: api}
}

func (e *VideoExtractor) Name() string { return "video" }

func (e *VideoExtractor) Extract(ctx context.Context, job domain.Job) error {
	if job.Kind != domain.KindVideo {
		return ErrWrongKind
	}
	return e.api.SubmitVideo(ctx, job.VideoID)
}

// ImageExtractor extracts recipes from image-batch jobs.
type ImageExtractor struct {
	api ImageSubmitter
}

// NewImageExtractor creates a new image extractor.
func NewImageExtractor(api ImageSubmitter) *ImageExtractor {
	return &ImageExtractor{api: api}
}

func (e *ImageExtractor) Name() string { return "images" }

func (e *ImageExtractor) Extract(ctx context.Context, job domain.Job) error {
	if job.Kind != domain.KindImageBatch {
		return ErrWrongKind
	}
	_, err := e.api.SubmitImages(ctx, job.Images)
	return err
}
