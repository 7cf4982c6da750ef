package domain

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusReady      JobStatus = "ready"
	JobStatusFailed     JobStatus = "failed"
)

// DeckRequest is what a user asks for when submitting a document.
type DeckRequest struct {
	Topic                   string `json:"topic"`
	Presenter               string `json:"presenter"`
	Instructions            string `json:"instructions,omitempty"`
	Style                   string `json:"style,omitempty"`
	Audience                string `json:"audience,omitempty"`
	NumSlides               int    `json:"num_slides"`
	IncludeExecutiveSummary bool   `json:"include_executive_summary"`
}

type DeckJob struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mime_type"`
	StoragePath string `json:"storage_path"`
	DeckRequest

	Status       JobStatus        `json:"status"`
	Error        string           `json:"error,omitempty"`
	Deck         *Deck            `json:"deck,omitempty"`
	Analysis     DocumentAnalysis `json:"analysis,omitempty"`
	SourceChunks int              `json:"source_chunks"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// DocumentAnalysis is the model's free-form JSON summary of a source document:
// main topics, key sections and a suggested slide structure. A reply that is
// not a JSON object is kept verbatim under "analysis".
type DocumentAnalysis map[string]any

type Deck struct {
	Slides []Slide `json:"slides"`
}

type Slide struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	SpeakerNote string `json:"speaker_note"`
}
