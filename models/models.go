package models

import "time"

type PaperStatus string

const (
	PaperStatusProcessing PaperStatus = "processing"
	PaperStatusCompleted  PaperStatus = "completed"
	PaperStatusError      PaperStatus = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s PaperStatus) Terminal() bool {
	return s == PaperStatusCompleted || s == PaperStatusError
}

// Paper is one uploaded document and the outcome of its processing pipeline.
// Summary, FullSummary and Compliance are populated only when Status is
// completed; Error only when Status is error.
type Paper struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Status      PaperStatus `json:"status"`
	UploadedAt  time.Time   `json:"uploadedAt"`
	Progress    float64     `json:"progress"`
	Stage       string      `json:"stage,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	FullSummary string      `json:"fullSummary,omitempty"`
	Compliance  string      `json:"compliance,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// AnalysisResult is the payload produced by a successful analysis call.
type AnalysisResult struct {
	Summary     string `json:"summary"`
	FullSummary string `json:"fullSummary"`
	Compliance  string `json:"compliance"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known conversation roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single chat turn. Timestamp is Unix milliseconds.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// SourceInfo contains information about where a PDF came from
type SourceInfo struct {
	ZoteroID string `json:"zotero_id,omitempty"`
	URL      string `json:"url,omitempty"`
}
