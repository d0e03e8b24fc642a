// Package pipeline runs a CSV statement import as an ordered list of steps
// that share an ImportState.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/dvloznov/smartspend/internal/logger"
	"github.com/dvloznov/smartspend/internal/normalize"
)

// PipelineStep represents a single step in the import pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *ImportState) error
}

// ImportState holds the shared state across all pipeline steps.
type ImportState struct {
	UserID  string
	Source  string
	Replace bool
	Input   io.Reader

	RunID  string
	Table  *normalize.Table
	Result *normalize.Result

	ByCategory        map[string]int
	Written           int
	WarehouseMirrored bool
}

// ImportResult summarises a finished import.
type ImportResult struct {
	RunID             string                    `json:"run_id"`
	Imported          int                       `json:"imported"`
	Dropped           int                       `json:"dropped"`
	DroppedRows       []normalize.RowParseError `json:"dropped_rows,omitempty"`
	ByCategory        map[string]int            `json:"by_category"`
	WarehouseMirrored bool                      `json:"warehouse_mirrored"`
}

// ImportResult builds the summary from a completed state.
func (s *ImportState) ImportResult() *ImportResult {
	r := &ImportResult{
		RunID:             s.RunID,
		Imported:          s.Written,
		ByCategory:        s.ByCategory,
		WarehouseMirrored: s.WarehouseMirrored,
	}
	if s.Result != nil {
		r.Dropped = len(s.Result.Dropped)
		r.DroppedRows = s.Result.Dropped
	}
	return r
}

// FailureHandler is called once when a step fails.
type FailureHandler func(ctx context.Context, state *ImportState, err error)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps     []PipelineStep
	onFailure FailureHandler
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// OnFailure registers fn to run when any step fails.
func (p *Pipeline) OnFailure(fn FailureHandler) *Pipeline {
	p.onFailure = fn
	return p
}

// Execute runs all steps in the pipeline sequentially and stops at the
// first error.
func (p *Pipeline) Execute(ctx context.Context, state *ImportState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			log.Warn().
				Err(err).
				Int("step", i+1).
				Str("run_id", state.RunID).
				Msg("import step failed")
			if p.onFailure != nil {
				p.onFailure(ctx, state, err)
			}
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
