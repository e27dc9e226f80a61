package docrag

// MetaSource is the metadata key carrying the source identifier of a chunk.
const MetaSource = "source"

// Document is a source file and its normalized full text. It only lives for
// the duration of one ingest call.
type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Chunk is a span of a document's text stored and retrieved as one unit.
// ID is content-addressed, see ChunkID.
type Chunk struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float32         `json:"-"`
}

// Source returns the chunk's source metadata, or "" if unset.
func (c Chunk) Source() string { return c.Metadata[MetaSource] }

// RetrievalResult is one chunk returned by a similarity search.
// Distance is store-defined; lower means more relevant.
type RetrievalResult struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Distance float64           `json:"distance"`
}

// Source returns the result's source metadata, or "" if unset.
func (r RetrievalResult) Source() string { return r.Metadata[MetaSource] }

// RetrievalContext is the citation-annotated context handed to the chat layer.
type RetrievalContext struct {
	FormattedContext string            `json:"formatted_context"`
	AvgDistance      *float64          `json:"avg_distance"` // nil when nothing was retrieved
	IsSuccess        bool              `json:"is_success"`
	Results          []RetrievalResult `json:"results"`
}

// IngestReport is the outcome of ingesting one file from a directory.
// ChunkCount == 0 means the file was empty or failed; Err tells them apart.
type IngestReport struct {
	Filename   string `json:"filename"`
	Path       string `json:"path"`
	ChunkCount int    `json:"chunk_count"`
	Err        error  `json:"-"`
}

// Failed reports whether ingestion of the file returned an error.
func (r IngestReport) Failed() bool { return r.Err != nil }
