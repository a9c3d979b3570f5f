package ingest

// EventName identifies a progress event emitted during ingestion.
type EventName string

const (
	EventDocumentCreated EventName = "document_created"
	EventStatus          EventName = "status"
	EventItem            EventName = "item"
	EventProgress        EventName = "progress"
	EventBatchSaved      EventName = "batch_saved"
	EventError           EventName = "error"
)

// Event is one named progress notification. Events are emitted in order;
// the data payload is JSON-serializable.
type Event struct {
	Name EventName
	Data any
}

// EventSink receives progress events. A nil sink discards them.
type EventSink interface {
	Emit(event Event)
}

// DocumentCreatedData announces the created document ID.
type DocumentCreatedData struct {
	DocumentID string `json:"documentId"`
}

// StatusData mirrors a pipeline stage transition.
type StatusData struct {
	Stage   string `json:"stage"`
	Message string `json:"message,omitempty"`
}

// ItemData carries one extracted item.
type ItemData struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	Data  any    `json:"data"`
}

// ProgressData reports embed/persist progress.
type ProgressData struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// BatchSavedData announces a flushed write batch.
type BatchSavedData struct {
	ChunkIDs   []string `json:"chunkIds"`
	BatchIndex int      `json:"batchIndex"`
}

// ErrorData reports a terminal pipeline failure.
type ErrorData struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

func sinkOrNop(sink EventSink) EventSink {
	if sink == nil {
		return nopSink{}
	}
	return sink
}
