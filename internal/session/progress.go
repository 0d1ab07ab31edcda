// Package session provides the session-keyed progress store shared between
// the HTTP status endpoint and the background processing pipelines.
package session

// Stage labels published to polling clients. Free-form strings on the wire;
// these constants keep producers consistent.
const (
	StageConverting = "Converting PDF"
	StageConverted  = "PDF Converted"
	StageProcessing = "OCR Processing"
	StageComplete   = "Complete"
)

// ProgressState is one immutable snapshot of a session's progress. The store
// always holds the latest snapshot only; older ones are discarded.
type ProgressState struct {
	Stage    string       `json:"stage"`
	Current  int          `json:"current"`
	Total    int          `json:"total"`
	Message  string       `json:"message"`
	Complete bool         `json:"complete"`
	Results  []FileResult `json:"results"`
}

// FileResult is the terminal outcome for one uploaded file.
type FileResult struct {
	Filename             string   `json:"filename"`
	Text                 string   `json:"text"`
	Success              bool     `json:"success"`
	Error                *string  `json:"error"`
	PagesProcessed       *int     `json:"pages_processed"`
	TotalPages           *int     `json:"total_pages"`
	EstimatedTimeSeconds *float64 `json:"estimated_time_seconds"`
}

// FailedResult builds a FileResult for a file that could not be processed.
func FailedResult(filename, reason string) FileResult {
	return FileResult{
		Filename: filename,
		Success:  false,
		Error:    &reason,
	}
}

// clone deep-copies a snapshot so callers can never mutate a stored value
// through a shared Results slice.
func (s ProgressState) clone() ProgressState {
	out := s
	if s.Results != nil {
		out.Results = make([]FileResult, len(s.Results))
		copy(out.Results, s.Results)
	}
	return out
}
