package processing

import "fmt"

// Stage is a phase of the paper pipeline. Stages are ordered and each owns a
// contiguous progress range.
type Stage int

const (
	StageUploading Stage = iota
	StageExtracting
	StageAnalyzing
	StageSummarizing
	StageCheckingStructure
	StageFinalizing
)

var stages = [...]struct {
	label        string
	lower, upper float64
}{
	StageUploading:         {"Uploading file...", 0, 15},
	StageExtracting:        {"Extracting text content...", 15, 30},
	StageAnalyzing:         {"Analyzing with AI...", 30, 45},
	StageSummarizing:       {"Generating summary...", 45, 60},
	StageCheckingStructure: {"Checking paper structure...", 60, 75},
	StageFinalizing:        {"Preparing results...", 75, 100},
}

func (s Stage) Valid() bool {
	return s >= StageUploading && s <= StageFinalizing
}

// Label is the human-readable description shown while the stage is active.
func (s Stage) Label() string {
	if !s.Valid() {
		return ""
	}
	return stages[s].label
}

// Lower is the progress value at which the stage begins.
func (s Stage) Lower() float64 {
	if !s.Valid() {
		return 0
	}
	return stages[s].lower
}

// Upper is the progress value at which the stage ends.
func (s Stage) Upper() float64 {
	if !s.Valid() {
		return 100
	}
	return stages[s].upper
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stages[s].label
}

// StageForProgress returns the last stage whose lower bound is at or below
// progress.
func StageForProgress(progress float64) Stage {
	current := StageUploading
	for s := StageUploading; s <= StageFinalizing; s++ {
		if progress >= s.Lower() {
			current = s
		}
	}
	return current
}
