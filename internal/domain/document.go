package domain

import (
	"fmt"
	"time"
)

// DocumentKind represents the kind of uploaded course document.
type DocumentKind string

const (
	DocumentKindLecture    DocumentKind = "lecture"
	DocumentKindExam       DocumentKind = "exam"
	DocumentKindAssignment DocumentKind = "assignment"
)

// DocumentStatus represents the ingestion status of a document. The status
// field is mutated exclusively by the ingestion orchestrator.
type DocumentStatus string

const (
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusError      DocumentStatus = "error"
)

// Document represents an uploaded course document that owns zero or more
// knowledge chunks.
type Document struct {
	ID            string
	CourseID      string
	Title         string
	Kind          DocumentKind
	Status        DocumentStatus
	StatusMessage string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewDocument creates a new Document in the processing state.
func NewDocument(id, courseID, title string, kind DocumentKind, createdAt time.Time) *Document {
	return &Document{
		ID:        id,
		CourseID:  courseID,
		Title:     title,
		Kind:      kind,
		Status:    DocumentStatusProcessing,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ValidateDocument validates a Document instance.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.CourseID == "" {
		return fmt.Errorf("document CourseID is required")
	}
	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}
	if !isValidDocumentKind(d.Kind) {
		return fmt.Errorf("document Kind is invalid: %s", d.Kind)
	}
	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}
	return nil
}

func isValidDocumentKind(k DocumentKind) bool {
	switch k {
	case DocumentKindLecture, DocumentKindExam, DocumentKindAssignment:
		return true
	}
	return false
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusProcessing, DocumentStatusReady, DocumentStatusError:
		return true
	}
	return false
}
