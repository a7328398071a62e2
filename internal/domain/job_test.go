package domain

import "testing"

func TestJobStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusSuccess, true},
		{StatusProcessing, StatusProcessing, true},
		{StatusProcessing, StatusSuccess, true},
		{StatusProcessing, StatusError, true},
		{StatusProcessing, StatusPending, false},
		{StatusSuccess, StatusPending, false},
		{StatusSuccess, StatusProcessing, false},
		{StatusSuccess, StatusError, false},
		{StatusError, StatusSuccess, false},
		{StatusError, StatusError, false},
		{StatusPending, JobStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressMessage_Clamped(t *testing.T) {
	last := ProgressMessages[len(ProgressMessages)-1]

	if got := ProgressMessage(0); got != "Extracting information..." {
		t.Errorf("ProgressMessage(0) = %q", got)
	}
	if got := ProgressMessage(-3); got != ProgressMessages[0] {
		t.Errorf("ProgressMessage(-3) = %q, want first message", got)
	}
	for _, step := range []int{4, 5, 100} {
		if got := ProgressMessage(step); got != last {
			t.Errorf("ProgressMessage(%d) = %q, want %q", step, got, last)
		}
	}
}

func TestNewImageBatchJob(t *testing.T) {
	images := []string{"file:///a.jpg", "file:///b.jpg", "file:///c.jpg"}
	job := NewImageBatchJob("img-1", images)

	if job.Kind != KindImageBatch {
		t.Errorf("Kind = %q, want %q", job.Kind, KindImageBatch)
	}
	if job.Title != "Recipe from 3 images" {
		t.Errorf("Title = %q, want %q", job.Title, "Recipe from 3 images")
	}
	if job.Thumbnail != images[0] {
		t.Errorf("Thumbnail = %q, want %q", job.Thumbnail, images[0])
	}
	if job.ImageCount() != 3 {
		t.Errorf("ImageCount() = %d, want 3", job.ImageCount())
	}
	if job.Status != StatusPending || job.Message != MessageWaiting {
		t.Errorf("status = %q/%q, want pending/%q", job.Status, job.Message, MessageWaiting)
	}

	// the job keeps its own copy of the references
	images[0] = "changed"
	if job.Images[0] != "file:///a.jpg" {
		t.Errorf("Images[0] = %q, want original reference", job.Images[0])
	}
}

func TestImageBatchTitle_Singular(t *testing.T) {
	if got := ImageBatchTitle(1); got != "Recipe from 1 image" {
		t.Errorf("ImageBatchTitle(1) = %q", got)
	}
}

func TestNewVideoJob(t *testing.T) {
	job := NewVideoJob("dQw4w9WgXcQ", "Pasta", "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg")

	if job.ID != "dQw4w9WgXcQ" || job.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("ID/VideoID = %q/%q, want video id", job.ID, job.VideoID)
	}
	if job.Kind != KindVideo {
		t.Errorf("Kind = %q, want %q", job.Kind, KindVideo)
	}
	if job.ImageCount() != 0 {
		t.Errorf("ImageCount() = %d, want 0", job.ImageCount())
	}
	if job.IsTerminal() {
		t.Error("new job should not be terminal")
	}
}
