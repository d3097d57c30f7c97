package operations

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Epistemic-Technology/paper-assistant/internal/documents"
	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/internal/processing"
	"github.com/Epistemic-Technology/paper-assistant/internal/storage"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

// Runner drives uploaded papers through the pipeline in the background and
// records each outcome on the state machine.
type Runner struct {
	orchestrator *Orchestrator
	machine      *processing.Machine
	simulator    *processing.Simulator
	repo         storage.PaperRepository
	chat         *ChatService
	log          logger.Logger

	group errgroup.Group
	// locks orders recording an outcome against deleting the same paper.
	locks paperLocks
}

// RunnerDeps holds the collaborators of a Runner. Simulator, Repository and
// Chat are optional.
type RunnerDeps struct {
	Orchestrator *Orchestrator
	Machine      *processing.Machine
	Simulator    *processing.Simulator
	Repository   storage.PaperRepository
	Chat         *ChatService
}

func NewRunner(deps RunnerDeps, log logger.Logger) *Runner {
	return &Runner{
		orchestrator: deps.Orchestrator,
		machine:      deps.Machine,
		simulator:    deps.Simulator,
		repo:         deps.Repository,
		chat:         deps.Chat,
		log:          log,
	}
}

// Submit registers the document as a processing paper and starts its
// pipeline. It returns immediately with the new paper.
//
// The pipeline runs on a background context: a caller going away does not
// cancel an in-flight model call.
func (r *Runner) Submit(doc *documents.Document) models.Paper {
	paper := r.machine.Begin(doc.Title)
	data := doc.Data
	r.group.Go(func() error {
		r.run(context.Background(), paper.ID, data)
		return nil
	})
	return paper
}

func (r *Runner) run(ctx context.Context, paperID string, data []byte) {
	stop := func() {}
	if r.simulator != nil {
		stop = r.simulator.Start(ctx, paperID)
	}

	result, err := r.orchestrator.Process(ctx, paperID, data, func(stage processing.Stage) {
		if _, err := r.machine.Advance(paperID, stage.Lower()); err != nil {
			r.log.Debug("Paper %s: progress for %s not applied: %v", paperID, stage, err)
		}
	})
	stop()

	unlock := r.locks.Lock(paperID)
	defer unlock()

	var paper models.Paper
	if err != nil {
		paper, err = r.machine.Fail(paperID, err)
	} else {
		paper, err = r.machine.Complete(paperID, result)
	}
	if errors.Is(err, processing.ErrPaperNotFound) {
		r.log.Debug("Paper %s was deleted during processing, discarding result", paperID)
		return
	}
	if err != nil {
		r.log.Error("Paper %s: failed to record outcome: %v", paperID, err)
		return
	}

	if r.repo != nil {
		if err := r.repo.SavePaper(ctx, &paper); err != nil {
			r.log.Error("Failed to save paper %s: %v", paperID, err)
		}
	}
}

// Wait blocks until every submitted pipeline has settled.
func (r *Runner) Wait() {
	_ = r.group.Wait()
}

// Delete removes a paper, its saved record and its chat session. It returns
// processing.ErrPaperNotFound if the paper is unknown.
func (r *Runner) Delete(ctx context.Context, paperID string) error {
	if err := r.deletePaper(ctx, paperID); err != nil {
		return err
	}
	if r.chat != nil {
		r.chat.Clear(ctx, paperID)
	}
	r.log.Info("Deleted paper %s", paperID)
	return nil
}

func (r *Runner) deletePaper(ctx context.Context, paperID string) error {
	unlock := r.locks.Lock(paperID)
	defer unlock()

	if !r.machine.Papers().Delete(paperID) {
		return processing.ErrPaperNotFound
	}
	if r.repo != nil {
		if err := r.repo.DeletePaper(ctx, paperID); err != nil {
			return fmt.Errorf("failed to delete paper %s: %w", paperID, err)
		}
	}
	return nil
}
