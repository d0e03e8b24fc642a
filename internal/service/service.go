// Package service is the application facade shared by the HTTP API and the
// CLI. Every operation takes the caller's identity explicitly and touches
// only that user's rows.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dvloznov/smartspend/internal/anomaly"
	"github.com/dvloznov/smartspend/internal/categorise"
	"github.com/dvloznov/smartspend/internal/dashboard"
	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/forecast"
	"github.com/dvloznov/smartspend/internal/identity"
	"github.com/dvloznov/smartspend/internal/insights"
	"github.com/dvloznov/smartspend/internal/logger"
	"github.com/dvloznov/smartspend/internal/pipeline"
	"github.com/dvloznov/smartspend/internal/receipts"
	"github.com/dvloznov/smartspend/internal/store"
)

// ErrOCRUnavailable is returned by ScanReceipt when no text extractor is
// configured.
var ErrOCRUnavailable = errors.New("service: receipt OCR is not configured")

// DefaultImportRunLimit bounds ImportRuns when no limit is given.
const DefaultImportRunLimit = 20

// Deps are the collaborators of a Service. Store is required; the rest are
// optional and fall back to defaults or disable the feature.
type Deps struct {
	Store       store.Store
	Warehouse   store.TransactionStore
	Categoriser *categorise.Categoriser
	Detector    *anomaly.Detector
	Forecaster  *forecast.Adapter
	OCR         receipts.TextExtractor
	Archiver    receipts.ImageArchiver
}

// Service implements the SmartSpend operations.
type Service struct {
	store       store.Store
	warehouse   store.TransactionStore
	categoriser *categorise.Categoriser
	detector    *anomaly.Detector
	forecaster  *forecast.Adapter
	ocr         receipts.TextExtractor
	archiver    receipts.ImageArchiver
}

// New creates a Service.
func New(d Deps) *Service {
	s := &Service{
		store:       d.Store,
		warehouse:   d.Warehouse,
		categoriser: d.Categoriser,
		detector:    d.Detector,
		forecaster:  d.Forecaster,
		ocr:         d.OCR,
		archiver:    d.Archiver,
	}
	if s.categoriser == nil {
		s.categoriser = categorise.New(nil)
	}
	if s.detector == nil {
		s.detector = anomaly.New()
	}
	if s.forecaster == nil {
		s.forecaster = forecast.NewAdapter()
	}
	return s
}

// OCREnabled reports whether ScanReceipt can run.
func (s *Service) OCREnabled() bool {
	return s.ocr != nil
}

// Taxonomy returns the categorisation rules in use.
func (s *Service) Taxonomy() categorise.Taxonomy {
	return s.categoriser.Taxonomy()
}

// ImportCSV normalizes, categorises and stores a bank CSV for the user.
// With replace set the user's existing transactions are replaced.
func (s *Service) ImportCSV(ctx context.Context, id identity.Identity, r io.Reader, source string, replace bool) (*pipeline.ImportResult, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	log := logger.ForUser(logger.FromContext(ctx), id.UserID)
	ctx = logger.WithContext(ctx, log)

	p := pipeline.NewImportPipeline(pipeline.Deps{
		Store:       s.store,
		Runs:        s.store,
		Warehouse:   s.warehouse,
		Categoriser: s.categoriser,
	})
	state := &pipeline.ImportState{
		UserID:  id.UserID,
		Source:  source,
		Replace: replace,
		Input:   r,
	}
	if err := p.Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("ImportCSV: %w", err)
	}

	res := state.ImportResult()
	log.Info().
		Str("run_id", res.RunID).
		Int("imported", res.Imported).
		Int("dropped", res.Dropped).
		Bool("replace", replace).
		Msg("import finished")
	return res, nil
}

// Transactions returns the user's transactions ordered by date.
func (s *Service) Transactions(ctx context.Context, id identity.Identity) ([]domain.Transaction, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	txs, err := s.store.LoadTransactions(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("Transactions: %w", err)
	}
	return txs, nil
}

// Dashboard builds the overview figures.
func (s *Service) Dashboard(ctx context.Context, id identity.Identity) (dashboard.Summary, error) {
	txs, flags, err := s.scored(ctx, id)
	if err != nil {
		return dashboard.Summary{}, fmt.Errorf("Dashboard: %w", err)
	}
	return dashboard.Build(txs, flags), nil
}

// Anomalies returns the flagged transactions in date order.
func (s *Service) Anomalies(ctx context.Context, id identity.Identity) ([]domain.Transaction, error) {
	txs, flags, err := s.scored(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Anomalies: %w", err)
	}
	return anomaly.Flagged(txs, flags), nil
}

// Insights explains the flagged transactions and spending trends.
func (s *Service) Insights(ctx context.Context, id identity.Identity) ([]insights.Insight, error) {
	txs, flags, err := s.scored(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Insights: %w", err)
	}
	return insights.Explain(txs, flags), nil
}

// Forecast projects the monthly running balance.
func (s *Service) Forecast(ctx context.Context, id identity.Identity) (*forecast.Outcome, error) {
	txs, err := s.Transactions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Forecast: %w", err)
	}
	out, err := s.forecaster.Forecast(forecast.MonthlyBalance(txs))
	if err != nil {
		return nil, fmt.Errorf("Forecast: %w", err)
	}
	if out.Mode == forecast.ModeBaseline {
		log := logger.FromContext(ctx)
		log.Debug().
			Str("user_id", id.UserID).
			Str("reason", out.Reason).
			Msg("forecast fell back to linear baseline")
	}
	return out, nil
}

// ImportRuns lists the user's recent imports, newest first.
func (s *Service) ImportRuns(ctx context.Context, id identity.Identity, limit int) ([]domain.ImportRun, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultImportRunLimit
	}
	runs, err := s.store.ListImportRuns(ctx, id.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("ImportRuns: %w", err)
	}
	return runs, nil
}

func (s *Service) scored(ctx context.Context, id identity.Identity) ([]domain.Transaction, []bool, error) {
	txs, err := s.Transactions(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return txs, s.detector.Detect(txs), nil
}

func detectContentType(data []byte) string {
	return http.DetectContentType(data)
}
