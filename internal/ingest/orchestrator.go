// Package ingest conducts the document ingestion pipeline: page extraction,
// content extraction, deduplication, quality review, per-item embedding,
// and batched persistence, with live progress events and cooperative
// cancellation.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/studymill/studymill/internal/domain"
	"github.com/studymill/studymill/internal/extract"
	"github.com/studymill/studymill/internal/pipeline"
	"github.com/studymill/studymill/internal/telemetry"
)

// DefaultWriteBatchSize is the number of chunks persisted per store write.
const DefaultWriteBatchSize = 5

// pdfMagic is the signature checked before any expensive work begins.
var pdfMagic = []byte("%PDF-")

// PageExtractor is the external collaborator that turns raw PDF bytes into
// page-numbered plain text.
type PageExtractor interface {
	ExtractPages(ctx context.Context, content []byte) ([]extract.Page, error)
}

// ContentExtractor runs the single extraction call for a document.
type ContentExtractor interface {
	Extract(ctx context.Context, kind domain.DocumentKind, pages []extract.Page, cancel *pipeline.Canceller) (extract.Result, error)
}

// Deduplicator merges near-duplicate extracted items.
type Deduplicator interface {
	Deduplicate(ctx context.Context, items []domain.ExtractedItem) ([]domain.ExtractedItem, error)
}

// Reviewer scores and filters extracted items.
type Reviewer interface {
	Review(ctx context.Context, items []domain.ExtractedItem, progress func(reviewed, total int), cancel *pipeline.Canceller) map[int]domain.QualityVerdict
	Filter(items []domain.ExtractedItem, verdicts map[int]domain.QualityVerdict) []domain.ExtractedItem
}

// EmbeddingClient generates one embedding per persisted item.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// DocumentRepository persists documents and their status transitions.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, message string) error
}

// ChunkRepository persists knowledge chunks in batches, returning the
// generated IDs in insertion order.
type ChunkRepository interface {
	InsertBatch(ctx context.Context, chunks []*domain.KnowledgeChunk) ([]string, error)
}

// UploadArchiver archives the raw uploaded bytes. Optional; archiving
// failure never fails ingestion.
type UploadArchiver interface {
	Put(ctx context.Context, key string, data []byte) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

type defaultUUIDGenerator struct{}

func (defaultUUIDGenerator) NewString() string { return uuid.NewString() }

// Config controls orchestrator behavior.
type Config struct {
	WriteBatchSize int
}

// Input describes one upload to ingest.
type Input struct {
	CourseID string
	Title    string
	Kind     domain.DocumentKind
	Content  []byte
}

// Orchestrator sequences the ingestion pipeline for one document at a
// time. Cross-document ingestion runs independently; the only shared state
// is the store itself.
type Orchestrator struct {
	pages     PageExtractor
	extractor ContentExtractor
	dedup     Deduplicator
	reviewer  Reviewer
	embedding EmbeddingClient
	docs      DocumentRepository
	chunks    ChunkRepository
	archive   UploadArchiver
	uuidGen   UUIDGenerator
	batchSize int
	now       func() time.Time
}

// NewOrchestrator creates an Orchestrator with default configuration.
func NewOrchestrator(
	pages PageExtractor,
	extractor ContentExtractor,
	dedup Deduplicator,
	reviewer Reviewer,
	embedding EmbeddingClient,
	docs DocumentRepository,
	chunks ChunkRepository,
) *Orchestrator {
	return &Orchestrator{
		pages:     pages,
		extractor: extractor,
		dedup:     dedup,
		reviewer:  reviewer,
		embedding: embedding,
		docs:      docs,
		chunks:    chunks,
		uuidGen:   defaultUUIDGenerator{},
		batchSize: DefaultWriteBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithConfig overrides the write batch size.
func (o *Orchestrator) WithConfig(cfg Config) *Orchestrator {
	if cfg.WriteBatchSize > 0 {
		o.batchSize = cfg.WriteBatchSize
	}
	return o
}

// WithArchiver attaches an optional raw-upload archiver.
func (o *Orchestrator) WithArchiver(archive UploadArchiver) *Orchestrator {
	o.archive = archive
	return o
}

// WithUUIDGenerator overrides ID generation (for testing).
func (o *Orchestrator) WithUUIDGenerator(gen UUIDGenerator) *Orchestrator {
	o.uuidGen = gen
	return o
}

// WithClock overrides the time source (for testing).
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Ingest runs the full pipeline for one uploaded document. The returned
// document reflects the terminal status. Internal step failures are caught
// here, logged, translated into one error event plus a status update, and
// never crash the enclosing process.
func (o *Orchestrator) Ingest(ctx context.Context, input Input, sink EventSink, cancel *pipeline.Canceller) (*domain.Document, error) {
	sink = sinkOrNop(sink)

	doc := domain.NewDocument(o.uuidGen.NewString(), input.CourseID, input.Title, input.Kind, o.now())
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}
	if err := o.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	sink.Emit(Event{Name: EventDocumentCreated, Data: DocumentCreatedData{DocumentID: doc.ID}})

	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.Ingest", telemetry.SpanAttributes{
		CourseID:   doc.CourseID,
		DocumentID: doc.ID,
		Operation:  "ingest",
	})
	defer span.End()

	if err := o.run(ctx, doc, input, sink, cancel); err != nil {
		span.SetError(err)
		o.fail(ctx, doc, sink, err)
		return doc, nil
	}
	return doc, nil
}

// run executes steps 1-5. Any returned error marks the document as failed;
// already-flushed batches are never rolled back.
func (o *Orchestrator) run(ctx context.Context, doc *domain.Document, input Input, sink EventSink, cancel *pipeline.Canceller) error {
	// Step 1: magic-byte signature before expensive work.
	if !bytes.HasPrefix(input.Content, pdfMagic) {
		return domain.ErrInvalidSignature
	}

	if o.archive != nil {
		if err := o.archive.Put(ctx, doc.ID+".pdf", input.Content); err != nil {
			log.Printf("failed to archive upload for document %s: %v", doc.ID, err)
		}
	}

	// Step 2: raw page extraction.
	o.transition(ctx, doc, sink, "parsing", "extracting document text")
	pages, err := o.pages.ExtractPages(ctx, input.Content)
	if err != nil {
		return fmt.Errorf("page extraction failed: %w", err)
	}
	if totalText(pages) == "" {
		return domain.ErrNoExtractableText
	}

	if o.cancelled(ctx, doc, sink, cancel, nil, 0) {
		return nil
	}

	// Step 3: content extraction.
	o.transition(ctx, doc, sink, "extracting", "extracting knowledge")
	result, err := o.extractor.Extract(ctx, input.Kind, pages, cancel)
	if err != nil {
		return fmt.Errorf("content extraction failed: %w", err)
	}
	for _, w := range result.Warnings {
		log.Printf("document %s extraction warning: %s", doc.ID, w)
	}
	items := result.Items
	for i, item := range items {
		sink.Emit(Event{Name: EventItem, Data: ItemData{Index: i, Type: string(item.Type), Data: item.Title()}})
	}
	if len(items) == 0 {
		// An empty document is valid, not an error.
		o.ready(ctx, doc, sink, "no items extracted")
		return nil
	}

	if o.cancelled(ctx, doc, sink, cancel, nil, 0) {
		return nil
	}

	// Quality gate: dedup and review are soft dependencies. Degraded
	// grounding quality beats losing all extracted content.
	o.transition(ctx, doc, sink, "reviewing", "checking quality")
	deduped, err := o.dedup.Deduplicate(ctx, items)
	if err != nil {
		log.Printf("document %s dedup failed, continuing with %d unmerged items: %v", doc.ID, len(items), err)
		deduped = items
	}

	verdicts := o.reviewer.Review(ctx, deduped, func(reviewed, total int) {
		sink.Emit(Event{Name: EventProgress, Data: ProgressData{Current: reviewed, Total: total}})
	}, cancel)
	kept := o.reviewer.Filter(deduped, verdicts)

	// Steps 4-5: sequential embedding and batched persistence, in the
	// exact order produced by extraction/dedup/review.
	o.transition(ctx, doc, sink, "embedding", "generating embeddings")
	batch := make([]*domain.KnowledgeChunk, 0, o.batchSize)
	batchIndex := 0
	for i, item := range kept {
		if o.cancelled(ctx, doc, sink, cancel, batch, batchIndex) {
			return nil
		}

		embedding, err := o.embedding.GenerateEmbedding(ctx, item.ContentText())
		if err != nil {
			// Flushed batches stay; forensic partial output is preserved.
			return fmt.Errorf("embedding failed at item %d: %w", i, err)
		}

		batch = append(batch, domain.NewKnowledgeChunk(doc.ID, item, embedding, o.now()))
		sink.Emit(Event{Name: EventProgress, Data: ProgressData{Current: i + 1, Total: len(kept)}})

		if len(batch) >= o.batchSize || i == len(kept)-1 {
			if err := o.flush(ctx, sink, batch, batchIndex); err != nil {
				return err
			}
			batch = batch[:0]
			batchIndex++
		}
	}

	o.ready(ctx, doc, sink, fmt.Sprintf("%d items ingested", len(kept)))
	return nil
}

func (o *Orchestrator) flush(ctx context.Context, sink EventSink, batch []*domain.KnowledgeChunk, batchIndex int) error {
	if len(batch) == 0 {
		return nil
	}
	ids, err := o.chunks.InsertBatch(ctx, batch)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "failed to persist chunk batch", err)
	}
	sink.Emit(Event{Name: EventBatchSaved, Data: BatchSavedData{ChunkIDs: ids, BatchIndex: batchIndex}})
	return nil
}

// cancelled checks the cooperative signal between steps. On cancellation
// any pending batch is flushed first and the document becomes ready: a
// user-initiated stop after partial work is not a failure.
func (o *Orchestrator) cancelled(ctx context.Context, doc *domain.Document, sink EventSink, cancel *pipeline.Canceller, pending []*domain.KnowledgeChunk, batchIndex int) bool {
	if !cancel.Cancelled() {
		return false
	}
	if err := o.flush(ctx, sink, pending, batchIndex); err != nil {
		log.Printf("document %s: failed to flush pending batch on cancel: %v", doc.ID, err)
	}
	o.ready(ctx, doc, sink, "cancelled, partial results preserved")
	return true
}

func (o *Orchestrator) transition(ctx context.Context, doc *domain.Document, sink EventSink, stage, message string) {
	if err := o.docs.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, message); err != nil {
		log.Printf("document %s: status update failed: %v", doc.ID, err)
	}
	doc.Status = domain.DocumentStatusProcessing
	doc.StatusMessage = message
	sink.Emit(Event{Name: EventStatus, Data: StatusData{Stage: stage, Message: message}})
}

func (o *Orchestrator) ready(ctx context.Context, doc *domain.Document, sink EventSink, message string) {
	if err := o.docs.UpdateStatus(ctx, doc.ID, domain.DocumentStatusReady, message); err != nil {
		log.Printf("document %s: status update failed: %v", doc.ID, err)
	}
	doc.Status = domain.DocumentStatusReady
	doc.StatusMessage = message
	sink.Emit(Event{Name: EventStatus, Data: StatusData{Stage: "ready", Message: message}})
}

func (o *Orchestrator) fail(ctx context.Context, doc *domain.Document, sink EventSink, cause error) {
	log.Printf("document %s ingestion failed: %v", doc.ID, cause)

	message := "ingestion failed"
	code := domain.ErrCodeInternalError
	var domainErr *domain.DomainError
	if errors.As(cause, &domainErr) {
		message = domainErr.Message
		code = domainErr.Code
	}

	if err := o.docs.UpdateStatus(ctx, doc.ID, domain.DocumentStatusError, message); err != nil {
		log.Printf("document %s: status update failed: %v", doc.ID, err)
	}
	doc.Status = domain.DocumentStatusError
	doc.StatusMessage = message
	sink.Emit(Event{Name: EventError, Data: ErrorData{Message: message, Code: code}})
}

func totalText(pages []extract.Page) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}
