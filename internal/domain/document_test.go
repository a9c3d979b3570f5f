package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	now := time.Now()
	doc := NewDocument("d1", "course1", "Lecture 4", DocumentKindLecture, now)

	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, "course1", doc.CourseID)
	assert.Equal(t, DocumentStatusProcessing, doc.Status)
	assert.Equal(t, now, doc.CreatedAt)
	assert.Equal(t, now, doc.UpdatedAt)
}

func TestValidateDocument(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*Document)
		wantErr string
	}{
		{"valid", func(d *Document) {}, ""},
		{"missing id", func(d *Document) { d.ID = "" }, "ID is required"},
		{"missing course", func(d *Document) { d.CourseID = "" }, "CourseID is required"},
		{"missing title", func(d *Document) { d.Title = "" }, "Title is required"},
		{"bad kind", func(d *Document) { d.Kind = "poem" }, "Kind is invalid"},
		{"bad status", func(d *Document) { d.Status = "limbo" }, "Status is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument("d1", "course1", "Exam 1", DocumentKindExam, now)
			tt.mutate(doc)
			err := ValidateDocument(doc)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateEmbeddingJob(t *testing.T) {
	now := time.Now()

	job := NewEmbeddingJob("j1", "chunk1", now)
	assert.NoError(t, ValidateEmbeddingJob(job))
	assert.Equal(t, EmbeddingJobStatusPending, job.Status)

	job.ChunkID = ""
	assert.Error(t, ValidateEmbeddingJob(job))

	job = NewEmbeddingJob("j1", "chunk1", now)
	job.Status = "unknown"
	assert.Error(t, ValidateEmbeddingJob(job))

	job = NewEmbeddingJob("j1", "chunk1", now)
	job.Retries = -1
	assert.Error(t, ValidateEmbeddingJob(job))
}
