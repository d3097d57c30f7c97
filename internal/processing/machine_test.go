package processing

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

func newTestMachine() *Machine {
	m := NewMachine(NewPapers(), logger.NewNoOpLogger())
	n := 0
	m.newID = func() string {
		n++
		return fmt.Sprintf("paper-%d", n)
	}
	return m
}

func TestStageForProgress(t *testing.T) {
	tests := []struct {
		progress float64
		want     Stage
	}{
		{0, StageUploading},
		{14.9, StageUploading},
		{15, StageExtracting},
		{30, StageAnalyzing},
		{44, StageAnalyzing},
		{45, StageSummarizing},
		{60, StageCheckingStructure},
		{75, StageFinalizing},
		{100, StageFinalizing},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.progress), func(t *testing.T) {
			if got := StageForProgress(tt.progress); got != tt.want {
				t.Errorf("StageForProgress(%v) = %v, want %v", tt.progress, got, tt.want)
			}
		})
	}
}

func TestStageLabels(t *testing.T) {
	want := []string{
		"Uploading file...",
		"Extracting text content...",
		"Analyzing with AI...",
		"Generating summary...",
		"Checking paper structure...",
		"Preparing results...",
	}
	for i, label := range want {
		if got := Stage(i).Label(); got != label {
			t.Errorf("Stage(%d).Label() = %q, want %q", i, got, label)
		}
	}
	if Stage(42).Valid() {
		t.Error("Stage(42) should be invalid")
	}
}

func TestBegin(t *testing.T) {
	m := newTestMachine()
	paper := m.Begin("paper.pdf")

	if paper.Status != models.PaperStatusProcessing {
		t.Errorf("Expected processing status, got %s", paper.Status)
	}
	if paper.Progress != 0 || paper.Stage != StageUploading.Label() {
		t.Errorf("Expected Uploading at 0, got %q at %v", paper.Stage, paper.Progress)
	}

	stored, ok := m.Papers().Get(paper.ID)
	if !ok || stored != paper {
		t.Errorf("Expected paper to be stored, got %+v (found=%v)", stored, ok)
	}
}

func TestAdvanceIsMonotonic(t *testing.T) {
	m := newTestMachine()
	paper := m.Begin("paper.pdf")

	steps := []float64{10, 5, 32, 20, 50, 500}
	last := 0.0
	lastStage := StageUploading
	for _, p := range steps {
		got, err := m.Advance(paper.ID, p)
		if err != nil {
			t.Fatalf("Advance(%v) failed: %v", p, err)
		}
		if got.Progress < last {
			t.Errorf("Progress decreased from %v to %v", last, got.Progress)
		}
		stage := StageForProgress(got.Progress)
		if stage < lastStage {
			t.Errorf("Stage regressed from %v to %v", lastStage, stage)
		}
		last, lastStage = got.Progress, stage
	}

	got, _ := m.Papers().Get(paper.ID)
	if got.Progress != maxProcessingProgress {
		t.Errorf("Expected progress capped at %d while processing, got %v", maxProcessingProgress, got.Progress)
	}
	if got.Stage != StageFinalizing.Label() {
		t.Errorf("Expected Finalizing stage, got %q", got.Stage)
	}
}

func TestAdvanceToStageBound(t *testing.T) {
	m := newTestMachine()
	paper := m.Begin("paper.pdf")

	got, err := m.Advance(paper.ID, StageAnalyzing.Lower())
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if got.Progress != 30 || got.Stage != StageAnalyzing.Label() {
		t.Errorf("Expected Analyzing at 30, got %q at %v", got.Stage, got.Progress)
	}

	got, err = m.Advance(paper.ID, StageExtracting.Lower())
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if got.Progress != 30 || got.Stage != StageAnalyzing.Label() {
		t.Errorf("An earlier stage bound must not regress, got %q at %v", got.Stage, got.Progress)
	}
}

func TestNudgeStaysWithinStage(t *testing.T) {
	m := newTestMachine()
	paper := m.Begin("paper.pdf")

	for i := 0; i < 20; i++ {
		if _, err := m.Nudge(paper.ID, 3, 90); err != nil {
			t.Fatalf("Nudge failed: %v", err)
		}
	}
	got, _ := m.Papers().Get(paper.ID)
	if got.Progress != StageUploading.Upper() {
		t.Errorf("Expected progress to stop at stage bound %v, got %v", StageUploading.Upper(), got.Progress)
	}
	if got.Stage != StageUploading.Label() {
		t.Errorf("Nudge must not change stage, got %q", got.Stage)
	}

	_, _ = m.Advance(paper.ID, StageFinalizing.Lower())
	for i := 0; i < 20; i++ {
		_, _ = m.Nudge(paper.ID, 3, 90)
	}
	got, _ = m.Papers().Get(paper.ID)
	if got.Progress != 90 {
		t.Errorf("Expected progress to stop at ceiling 90, got %v", got.Progress)
	}
}

func TestComplete(t *testing.T) {
	m := newTestMachine()
	paper := m.Begin("paper.pdf")
	_, _ = m.Advance(paper.ID, 40)

	result := &models.AnalysisResult{Summary: "S", FullSummary: "S", Compliance: "C"}
	got, err := m.Complete(paper.ID, result)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got.Status != models.PaperStatusCompleted || got.Progress != 100 || got.Stage != "" {
		t.Errorf("Unexpected completed paper %+v", got)
	}
	if got.Summary != "S" || got.FullSummary != "S" || got.Compliance != "C" || got.Error != "" {
		t.Errorf("Result not attached correctly: %+v", got)
	}

	if _, err := m.Complete(paper.ID, nil); err == nil {
		t.Error("Expected error completing with nil result")
	}
}

func TestFail(t *testing.T) {
	m := newTestMachine()
	paper := m.Begin("paper.pdf")

	cause := &models.ExtractionError{Err: errors.New("bad xref")}
	got, err := m.Fail(paper.ID, cause)
	if err != nil {
		t.Fatalf("Fail failed: %v", err)
	}
	if got.Status != models.PaperStatusError || got.Progress != 100 || got.Stage != "" {
		t.Errorf("Unexpected failed paper %+v", got)
	}
	if got.Error != cause.Error() {
		t.Errorf("Error = %q, want %q", got.Error, cause.Error())
	}
	if got.Summary != "" || got.FullSummary != "" || got.Compliance != "" {
		t.Errorf("Failed paper must not carry results: %+v", got)
	}
}

func TestTerminalStateIsFrozen(t *testing.T) {
	m := newTestMachine()
	paper := m.Begin("paper.pdf")
	done, _ := m.Complete(paper.ID, &models.AnalysisResult{Summary: "S", FullSummary: "S", Compliance: "C"})

	transitions := map[string]func() error{
		"advance": func() error { _, err := m.Advance(paper.ID, 50); return err },
		"nudge":   func() error { _, err := m.Nudge(paper.ID, 1, 90); return err },
		"complete": func() error {
			_, err := m.Complete(paper.ID, &models.AnalysisResult{Summary: "other"})
			return err
		},
		"fail": func() error { _, err := m.Fail(paper.ID, errors.New("late")); return err },
	}

	for name, transition := range transitions {
		t.Run(name, func(t *testing.T) {
			if err := transition(); !errors.Is(err, ErrTerminal) {
				t.Errorf("Expected ErrTerminal, got %v", err)
			}
			got, _ := m.Papers().Get(paper.ID)
			if got != done {
				t.Errorf("Terminal paper changed: %+v", got)
			}
		})
	}
}

func TestTransitionsOnMissingPaper(t *testing.T) {
	m := newTestMachine()
	if _, err := m.Advance("missing", 10); !errors.Is(err, ErrPaperNotFound) {
		t.Errorf("Expected ErrPaperNotFound, got %v", err)
	}

	paper := m.Begin("paper.pdf")
	m.Papers().Delete(paper.ID)
	if _, err := m.Complete(paper.ID, &models.AnalysisResult{}); !errors.Is(err, ErrPaperNotFound) {
		t.Errorf("Expected ErrPaperNotFound after delete, got %v", err)
	}
}

func TestPapersListAndUpsert(t *testing.T) {
	papers := NewPapers()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	papers.Upsert(models.Paper{ID: "a", Title: "first", UploadedAt: base})
	papers.Upsert(models.Paper{ID: "b", Title: "second", UploadedAt: base.Add(time.Hour)})
	papers.Upsert(models.Paper{ID: "a", Title: "first-renamed", UploadedAt: base})

	list := papers.List()
	if len(list) != 2 {
		t.Fatalf("Expected 2 papers, got %d", len(list))
	}
	if list[0].ID != "b" || list[1].Title != "first-renamed" {
		t.Errorf("Unexpected list order or contents: %+v", list)
	}

	if !papers.Delete("a") {
		t.Error("Expected Delete to report existing paper")
	}
	if papers.Delete("a") {
		t.Error("Expected second Delete to report missing paper")
	}
	if _, ok := papers.Get("a"); ok {
		t.Error("Deleted paper still visible")
	}
}

func TestConcurrentTransitions(t *testing.T) {
	m := newTestMachine()
	ids := make([]string, 5)
	for i := range ids {
		ids[i] = m.Begin(fmt.Sprintf("paper-%d.pdf", i)).ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for p := 0; p < 100; p++ {
			wg.Add(1)
			go func(id string, p int) {
				defer wg.Done()
				_, _ = m.Advance(id, float64(p))
			}(id, p)
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = m.Complete(id, &models.AnalysisResult{Summary: "S", FullSummary: "S", Compliance: "C"})
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		got, _ := m.Papers().Get(id)
		if got.Status != models.PaperStatusCompleted || got.Progress != 100 || got.Stage != "" {
			t.Errorf("Paper %s not cleanly completed: %+v", id, got)
		}
	}
}
