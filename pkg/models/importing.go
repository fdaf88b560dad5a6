package models

// ImportPhase identifies which stage of a batch a progress event belongs to.
type ImportPhase string

const (
	PhaseScanning  ImportPhase = "scanning"
	PhaseImporting ImportPhase = "importing"
	PhaseComplete  ImportPhase = "complete"
	PhaseCancelled ImportPhase = "cancelled"
)

// FileStatus is the per-file outcome reported through the progress stream.
type FileStatus string

const (
	StatusProcessing FileStatus = "processing"
	StatusImported   FileStatus = "imported"
	StatusDuplicate  FileStatus = "duplicate"
	StatusSkipped    FileStatus = "skipped"
	StatusError      FileStatus = "error"
)

// ProgressEvent is published once per file (plus a terminal event) while an
// import batch runs. Processed is monotonically increasing within a batch.
type ProgressEvent struct {
	BatchID   string      `json:"batchId"`
	Phase     ImportPhase `json:"phase"`
	Processed int         `json:"processedCount"`
	Total     int         `json:"totalCount"`
	Message   string      `json:"message,omitempty"`
	Status    FileStatus  `json:"status,omitempty"`
}

// ImportedTrack carries the minimal display fields for a newly created row.
type ImportedTrack struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}

// ImportSummary is the aggregate result of one import batch.
type ImportSummary struct {
	BatchID    string          `json:"batchId"`
	Total      int             `json:"total"`
	Imported   int             `json:"imported"`
	Skipped    int             `json:"skipped"`
	Duplicates int             `json:"duplicates"`
	Errors     int             `json:"errors"`
	Cancelled  bool            `json:"cancelled"`
	Tracks     []ImportedTrack `json:"tracks,omitempty"`
}
