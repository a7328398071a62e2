package domain

import "fmt"

// JobStatus represents the processing state of a job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusSuccess    JobStatus = "success"
	StatusError      JobStatus = "error"
)

// Kind tags what a job ingests.
type Kind string

const (
	KindVideo      Kind = "video"
	KindImageBatch Kind = "image-batch"
)

// Fixed user-facing status lines.
const (
	MessageWaiting = "Waiting..."
	MessageSaved   = "Recipe saved!"
	MessageFailed  = "Failed to process"
)

// ProgressMessages are shown in order while a job is processing.
var ProgressMessages = []string{
	"Extracting information...",
	"Analyzing the recipe...",
	"Checking ingredients...",
	"That seems to be a nice dish...",
	"Almost there...",
}

// ProgressMessage returns the message for the given step, clamped to the last entry.
func ProgressMessage(step int) string {
	if step < 0 {
		step = 0
	}
	if step >= len(ProgressMessages) {
		step = len(ProgressMessages) - 1
	}
	return ProgressMessages[step]
}

// Job represents one recipe ingestion request (a video or a batch of images).
type Job struct {
	ID        string
	Kind      Kind
	Title     string
	Thumbnail string
	VideoID   string   // set for KindVideo
	Images    []string // set for KindImageBatch, in submission order
	Status    JobStatus
	Message   string

	// seq identifies this queue entry; ids repeat when a source is re-submitted.
	seq uint64
}

// NewVideoJob creates a pending video job keyed by the external video id.
func NewVideoJob(videoID, title, thumbnail string) Job {
	return Job{
		ID:        videoID,
		Kind:      KindVideo,
		Title:     title,
		Thumbnail: thumbnail,
		VideoID:   videoID,
		Status:    StatusPending,
		Message:   MessageWaiting,
	}
}

// NewImageBatchJob creates a pending image-batch job. The first image is used as thumbnail.
func NewImageBatchJob(id string, images []string) Job {
	refs := make([]string, len(images))
	copy(refs, images)

	var thumb string
	if len(refs) > 0 {
		thumb = refs[0]
	}
	return Job{
		ID:        id,
		Kind:      KindImageBatch,
		Title:     ImageBatchTitle(len(refs)),
		Thumbnail: thumb,
		Images:    refs,
		Status:    StatusPending,
		Message:   MessageWaiting,
	}
}

// ImageBatchTitle synthesizes the display title for a batch of n images.
func ImageBatchTitle(n int) string {
	if n == 1 {
		return "Recipe from 1 image"
	}
	return fmt.Sprintf("Recipe from %d images", n)
}

// ImageCount returns the number of images for image batches, 0 otherwise.
func (j Job) ImageCount() int {
	return len(j.Images)
}

// IsTerminal reports whether the job reached success or error.
func (j Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// IsTerminal reports whether no further transitions can happen from s.
func (s JobStatus) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

func (s JobStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusSuccess, StatusError:
		return 2
	}
	return -1
}

// CanTransition reports whether moving from s to next keeps the
// pending -> processing -> success|error order.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s == next {
		return !s.IsTerminal()
	}
	r, n := s.rank(), next.rank()
	return r >= 0 && n > r
}

func (j Job) clone() Job {
	if j.Images != nil {
		imgs := make([]string, len(j.Images))
		copy(imgs, j.Images)
		j.Images = imgs
	}
	return j
}
