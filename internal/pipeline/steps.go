package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/smartspend/internal/categorise"
	"github.com/dvloznov/smartspend/internal/logger"
	"github.com/dvloznov/smartspend/internal/normalize"
	"github.com/dvloznov/smartspend/internal/store"
)

// Step 1: StartImportRunStep records a RUNNING import run.
type StartImportRunStep struct {
	Runs store.ImportRunStore
}

func (s *StartImportRunStep) Execute(ctx context.Context, state *ImportState) error {
	runID, err := s.Runs.StartImportRun(ctx, state.UserID, state.Source)
	if err != nil {
		return err
	}
	state.RunID = runID
	return nil
}

// Step 2: ReadCSVStep reads the uploaded bytes into a raw table.
type ReadCSVStep struct{}

func (s *ReadCSVStep) Execute(ctx context.Context, state *ImportState) error {
	if state.Input == nil {
		return fmt.Errorf("ReadCSVStep: no input")
	}
	t, err := normalize.ReadCSV(state.Input)
	if err != nil {
		return err
	}
	state.Table = t
	return nil
}

// Step 3: NormalizeStep maps the table onto canonical transactions.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *ImportState) error {
	res, err := normalize.Normalize(state.Table)
	if err != nil {
		return err
	}
	for _, d := range res.Dropped {
		log := logger.FromContext(ctx)
		log.Debug().
			Int("line", d.Line).
			Str("field", d.Field).
			Str("value", d.Value).
			Msg("dropped unparsable row")
	}
	state.Result = res
	return nil
}

// Step 4: CategoriseStep assigns a category to every transaction.
type CategoriseStep struct {
	Categoriser *categorise.Categoriser
}

func (s *CategoriseStep) Execute(ctx context.Context, state *ImportState) error {
	state.ByCategory = s.Categoriser.Apply(state.Result.Transactions)
	return nil
}

// Step 5: ValidateCategoriesStep rejects categories outside the taxonomy.
type ValidateCategoriesStep struct {
	Validator *CategoryValidator
}

func (s *ValidateCategoriesStep) Execute(ctx context.Context, state *ImportState) error {
	for i, tx := range state.Result.Transactions {
		if err := s.Validator.ValidateCategory(tx.Category); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}

// Step 6: WriteTransactionsStep persists the batch to the primary store.
type WriteTransactionsStep struct {
	Store store.TransactionStore
}

func (s *WriteTransactionsStep) Execute(ctx context.Context, state *ImportState) error {
	n, err := s.Store.WriteTransactions(ctx, state.UserID, state.Result.Transactions, state.Replace)
	if err != nil {
		return err
	}
	state.Written = n
	return nil
}

// Step 7: MirrorWarehouseStep copies the batch to the analytics warehouse.
// Failures are logged and do not fail the import.
type MirrorWarehouseStep struct {
	Warehouse store.TransactionStore
}

func (s *MirrorWarehouseStep) Execute(ctx context.Context, state *ImportState) error {
	if s.Warehouse == nil {
		return nil
	}
	if _, err := s.Warehouse.WriteTransactions(ctx, state.UserID, state.Result.Transactions, state.Replace); err != nil {
		log := logger.FromContext(ctx)
		log.Error().
			Err(err).
			Str("run_id", state.RunID).
			Msg("warehouse mirror failed")
		return nil
	}
	state.WarehouseMirrored = true
	return nil
}

// Step 8: MarkSuccessStep marks the import run as SUCCESS.
type MarkSuccessStep struct {
	Runs store.ImportRunStore
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *ImportState) error {
	return s.Runs.MarkImportRunSucceeded(ctx, state.RunID, state.Written, len(state.Result.Dropped))
}

// Deps are the collaborators of the import pipeline. Warehouse is optional.
type Deps struct {
	Store       store.TransactionStore
	Runs        store.ImportRunStore
	Warehouse   store.TransactionStore
	Categoriser *categorise.Categoriser
}

// NewImportPipeline creates the standard 8-step CSV import pipeline. A
// failing step marks the run FAILED; nothing is written unless every step
// up to the write succeeds.
func NewImportPipeline(d Deps) *Pipeline {
	if d.Categoriser == nil {
		d.Categoriser = categorise.New(nil)
	}
	return NewPipeline(
		&StartImportRunStep{Runs: d.Runs},
		&ReadCSVStep{},
		&NormalizeStep{},
		&CategoriseStep{Categoriser: d.Categoriser},
		&ValidateCategoriesStep{Validator: NewCategoryValidator(d.Categoriser.Taxonomy())},
		&WriteTransactionsStep{Store: d.Store},
		&MirrorWarehouseStep{Warehouse: d.Warehouse},
		&MarkSuccessStep{Runs: d.Runs},
	).OnFailure(markFailed(d.Runs))
}

func markFailed(runs store.ImportRunStore) FailureHandler {
	return func(ctx context.Context, state *ImportState, err error) {
		if state.RunID == "" {
			return
		}
		if merr := runs.MarkImportRunFailed(ctx, state.RunID, err); merr != nil {
			log := logger.FromContext(ctx)
			log.Error().
				Err(merr).
				Str("run_id", state.RunID).
				Msg("MarkImportRunFailed")
		}
	}
}
