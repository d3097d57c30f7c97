package operations

import (
	"context"
	"time"

	"github.com/Epistemic-Technology/paper-assistant/internal/documents"
	"github.com/Epistemic-Technology/paper-assistant/internal/llm"
	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/internal/pdf"
	"github.com/Epistemic-Technology/paper-assistant/internal/processing"
	"github.com/Epistemic-Technology/paper-assistant/internal/prompt"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

// DefaultAnalysisTemperature keeps the structure check and summary stable
// across runs.
const DefaultAnalysisTemperature = 0.2

// StageObserver is notified as the pipeline moves through its stages.
type StageObserver func(stage processing.Stage)

// OrchestratorConfig configures an Orchestrator
type OrchestratorConfig struct {
	MaxBytes    int64
	Temperature float64
}

// Orchestrator runs the extract, prompt, model call and parse steps for one
// PDF.
type Orchestrator struct {
	completer   llm.Completer
	maxBytes    int64
	temperature float64
	log         logger.Logger
}

func NewOrchestrator(completer llm.Completer, cfg OrchestratorConfig, log logger.Logger) *Orchestrator {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = documents.DefaultMaxBytes
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultAnalysisTemperature
	}
	return &Orchestrator{
		completer:   completer,
		maxBytes:    cfg.MaxBytes,
		temperature: cfg.Temperature,
		log:         log,
	}
}

// Process analyzes a PDF and returns its summary and structure diagnostic.
//
// Errors are typed: *models.ValidationError for a missing or oversized PDF,
// *models.ExtractionError when the PDF cannot be decoded, and
// *models.ModelCallError when the model call fails. A response without the
// expected markers is not an error. observe may be nil.
func (o *Orchestrator) Process(ctx context.Context, paperID string, data []byte, observe StageObserver) (*models.AnalysisResult, error) {
	notify := func(stage processing.Stage) {
		if observe != nil {
			observe(stage)
		}
	}

	if len(data) == 0 {
		return nil, &models.ValidationError{Message: "No PDF file provided"}
	}
	if int64(len(data)) > o.maxBytes {
		return nil, models.NewValidationError("PDF exceeds the maximum size of %d MB", o.maxBytes/(1024*1024))
	}

	notify(processing.StageExtracting)
	pages, err := pdf.ExtractPages(data)
	if err != nil {
		o.log.Error("Paper %s: %v", paperID, err)
		return nil, err
	}
	fullText := pdf.JoinPages(pages)
	o.log.Info("Paper %s: extracted %d pages (%d characters)", paperID, len(pages), len(fullText))

	notify(processing.StageAnalyzing)
	start := time.Now()
	raw, err := o.completer.Complete(ctx, prompt.BuildAnalyzeMessages(fullText), o.temperature)
	if err != nil {
		return nil, asModelCallError(err)
	}
	o.log.Info("Paper %s: analysis received in %v", paperID, time.Since(start))

	notify(processing.StageSummarizing)
	analysis := prompt.ParseAnalysis(raw)

	notify(processing.StageCheckingStructure)
	result := &models.AnalysisResult{
		Summary:     analysis.Summary,
		FullSummary: analysis.Summary,
		Compliance:  analysis.Structure,
	}

	notify(processing.StageFinalizing)
	return result, nil
}
