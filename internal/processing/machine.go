package processing

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

var (
	// ErrPaperNotFound is returned for transitions on an unknown or deleted paper.
	ErrPaperNotFound = errors.New("paper not found")
	// ErrTerminal is returned for transitions on a completed or failed paper.
	ErrTerminal = errors.New("paper has already finished processing")
)

// maxProcessingProgress keeps 100 reserved for terminal papers.
const maxProcessingProgress = 99

// Machine applies state transitions to papers held in a Papers collection.
// Progress never decreases, the stage never moves backwards, and a paper in a
// terminal state is never changed again.
type Machine struct {
	papers *Papers
	log    logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewMachine(papers *Papers, log logger.Logger) *Machine {
	return &Machine{
		papers: papers,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Papers returns the collection the machine writes to.
func (m *Machine) Papers() *Papers {
	return m.papers
}

// Begin registers a new paper in the Uploading stage and returns it.
func (m *Machine) Begin(title string) models.Paper {
	paper := models.Paper{
		ID:         m.newID(),
		Title:      title,
		Status:     models.PaperStatusProcessing,
		UploadedAt: m.now().UTC(),
		Progress:   0,
		Stage:      StageUploading.Label(),
	}
	m.papers.Upsert(paper)
	m.log.Info("Started processing paper %s (%s)", paper.ID, title)
	return paper
}

// Advance records real progress. Values below the current progress are
// ignored; the stage follows the progress bounds but never regresses.
func (m *Machine) Advance(id string, progress float64) (models.Paper, error) {
	return m.papers.update(id, func(e *entry) error {
		if e.paper.Status.Terminal() {
			return ErrTerminal
		}
		setProgress(e, min(progress, maxProcessingProgress))
		if s := StageForProgress(e.paper.Progress); s > e.stage {
			setStage(e, s)
		}
		return nil
	})
}

// Nudge is the simulated progress signal: it adds delta, capped at ceiling
// and at the upper bound of the current stage. It never changes the stage.
func (m *Machine) Nudge(id string, delta, ceiling float64) (models.Paper, error) {
	return m.papers.update(id, func(e *entry) error {
		if e.paper.Status.Terminal() {
			return ErrTerminal
		}
		limit := min(ceiling, e.stage.Upper(), maxProcessingProgress)
		setProgress(e, min(e.paper.Progress+delta, limit))
		return nil
	})
}

// Complete moves the paper to completed and attaches the analysis.
func (m *Machine) Complete(id string, result *models.AnalysisResult) (models.Paper, error) {
	if result == nil {
		return models.Paper{}, errors.New("cannot complete paper without an analysis result")
	}
	paper, err := m.papers.update(id, func(e *entry) error {
		if e.paper.Status.Terminal() {
			return ErrTerminal
		}
		e.paper.Status = models.PaperStatusCompleted
		e.paper.Progress = 100
		e.paper.Stage = ""
		e.paper.Summary = result.Summary
		e.paper.FullSummary = result.FullSummary
		e.paper.Compliance = result.Compliance
		e.paper.Error = ""
		return nil
	})
	if err == nil {
		m.log.Info("Paper %s completed", id)
	}
	return paper, err
}

// Fail moves the paper to error with the user-facing message for cause.
func (m *Machine) Fail(id string, cause error) (models.Paper, error) {
	paper, err := m.papers.update(id, func(e *entry) error {
		if e.paper.Status.Terminal() {
			return ErrTerminal
		}
		e.paper.Status = models.PaperStatusError
		e.paper.Progress = 100
		e.paper.Stage = ""
		e.paper.Summary = ""
		e.paper.FullSummary = ""
		e.paper.Compliance = ""
		e.paper.Error = models.UserMessage(cause)
		return nil
	})
	if err == nil {
		m.log.Warn("Paper %s failed: %v", id, cause)
	}
	return paper, err
}

func setProgress(e *entry, progress float64) {
	if progress > e.paper.Progress {
		e.paper.Progress = progress
	}
}

func setStage(e *entry, s Stage) {
	e.stage = s
	e.paper.Stage = s.Label()
}
