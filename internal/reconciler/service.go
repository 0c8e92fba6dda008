// Package reconciler runs one reconciliation end to end: load both exports,
// prepare them, match on PartnerPin and assemble the report.
//
// Example usage:
//
//	service, err := reconciler.NewReconciliationService(reconciler.DefaultConfig())
//	report, err := service.Process(ctx, &reconciler.ReconciliationRequest{
//		StatementFile:  "statement.xlsx",
//		SettlementFile: "settlement.xlsx",
//	})
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"settlement-reconciliation-service/internal/matcher"
	"settlement-reconciliation-service/internal/models"
	"settlement-reconciliation-service/internal/parsers"
	"settlement-reconciliation-service/pkg/errors"
	"settlement-reconciliation-service/pkg/logger"
)

// Stage names reported to progress callbacks and logs.
const (
	StageLoadStatement     = "load_statement"
	StageLoadSettlement    = "load_settlement"
	StagePrepareStatement  = "prepare_statement"
	StagePrepareSettlement = "prepare_settlement"
	StageMatch             = "match"
	totalStages            = 5
)

// Progress describes how far a run has got.
type Progress struct {
	Stage          string `json:"stage"`
	CompletedSteps int    `json:"completed_steps"`
	TotalSteps     int    `json:"total_steps"`
}

// ProgressCallback is called after each completed stage.
type ProgressCallback func(Progress)

// ReconciliationService orchestrates the complete reconciliation process
type ReconciliationService struct {
	config           *Config
	loader           *parsers.Loader
	statementParser  *parsers.StatementParser
	settlementParser *parsers.SettlementParser
	logger           logger.Logger

	callbacks []ProgressCallback
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(config *Config) (*ReconciliationService, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciler", nil, err)
	}

	loader, err := parsers.NewLoader(config.Load)
	if err != nil {
		return nil, err
	}
	statementParser, err := parsers.NewStatementParser(config.Statement)
	if err != nil {
		return nil, err
	}
	settlementParser, err := parsers.NewSettlementParser(config.Settlement)
	if err != nil {
		return nil, err
	}

	return &ReconciliationService{
		config:           config,
		loader:           loader,
		statementParser:  statementParser,
		settlementParser: settlementParser,
		logger:           logger.WithComponent("reconciler"),
	}, nil
}

// AddProgressCallback adds a progress callback function
func (rs *ReconciliationService) AddProgressCallback(callback ProgressCallback) {
	rs.callbacks = append(rs.callbacks, callback)
}

// GetMatchingConfig returns the matching configuration in use
func (rs *ReconciliationService) GetMatchingConfig() *matcher.MatchingConfig {
	return rs.config.Matching
}

// Process loads and reconciles the two files named by request.
func (rs *ReconciliationService) Process(ctx context.Context, request *ReconciliationRequest) (*models.Report, error) {
	if err := request.Validate(); err != nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "reconciliation_request", request, err)
	}

	start := time.Now()
	rs.logger.WithFields(logger.Fields{
		"statement_file":  request.StatementFile,
		"settlement_file": request.SettlementFile,
	}).Info("Starting reconciliation")

	tracker := rs.newTracker()
	var statement, settlement *parsers.Prepared

	prepareStatement := func(ctx context.Context) error {
		var err error
		statement, err = rs.loadAndPrepare(ctx, tracker, request.StatementFile,
			StageLoadStatement, StagePrepareStatement, rs.statementParser.Prepare)
		return err
	}
	prepareSettlement := func(ctx context.Context) error {
		var err error
		settlement, err = rs.loadAndPrepare(ctx, tracker, request.SettlementFile,
			StageLoadSettlement, StagePrepareSettlement, rs.settlementParser.Prepare)
		return err
	}

	if err := rs.run(ctx, prepareStatement, prepareSettlement); err != nil {
		return nil, err
	}

	return rs.match(tracker, statement, settlement, start)
}

// ProcessTables reconciles two tables already in memory.
func (rs *ReconciliationService) ProcessTables(ctx context.Context, statementTable, settlementTable *models.RawTable) (*models.Report, error) {
	start := time.Now()
	tracker := rs.newTracker()
	tracker.complete(StageLoadStatement)
	tracker.complete(StageLoadSettlement)

	var statement, settlement *parsers.Prepared
	prepareStatement := func(ctx context.Context) error {
		var err error
		statement, err = rs.prepare(ctx, tracker, statementTable, StagePrepareStatement, rs.statementParser.Prepare)
		return err
	}
	prepareSettlement := func(ctx context.Context) error {
		var err error
		settlement, err = rs.prepare(ctx, tracker, settlementTable, StagePrepareSettlement, rs.settlementParser.Prepare)
		return err
	}

	if err := rs.run(ctx, prepareStatement, prepareSettlement); err != nil {
		return nil, err
	}

	return rs.match(tracker, statement, settlement, start)
}

// run executes the two independent preparations, concurrently when configured.
func (rs *ReconciliationService) run(ctx context.Context, tasks ...func(context.Context) error) error {
	if !rs.config.Parallel {
		for _, task := range tasks {
			if err := task(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			return task(gctx)
		})
	}
	return g.Wait()
}

type prepareFunc func(context.Context, *models.RawTable) (*parsers.Prepared, error)

func (rs *ReconciliationService) loadAndPrepare(
	ctx context.Context,
	tracker *progressTracker,
	path, loadStage, prepareStage string,
	prepare prepareFunc,
) (*parsers.Prepared, error) {
	var table *models.RawTable
	err := logger.TimedStage(loadStage, rs.logger, func(sl *logger.StageLogger) error {
		sl.WithField("file", path)
		var err error
		table, err = rs.loader.Load(ctx, path)
		if err == nil {
			sl.WithField("rows", table.NumRows())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	tracker.complete(loadStage)

	return rs.prepare(ctx, tracker, table, prepareStage, prepare)
}

func (rs *ReconciliationService) prepare(
	ctx context.Context,
	tracker *progressTracker,
	table *models.RawTable,
	stage string,
	prepare prepareFunc,
) (*parsers.Prepared, error) {
	if table == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, stage, nil, nil)
	}

	var prepared *parsers.Prepared
	err := logger.TimedStage(stage, rs.logger, func(sl *logger.StageLogger) error {
		var err error
		prepared, err = prepare(ctx, table)
		if err == nil {
			sl.WithField("rows_with_pin", prepared.Summary.RowsWithPin).
				WithField("eligible_rows", prepared.Summary.EligibleRows)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	tracker.complete(stage)
	return prepared, nil
}

func (rs *ReconciliationService) match(
	tracker *progressTracker,
	statement, settlement *parsers.Prepared,
	start time.Time,
) (*models.Report, error) {
	engine := matcher.NewMatchingEngine(rs.config.Matching)
	engine.LoadSettlementRows(settlement.Rows)
	engine.LoadStatementRows(statement.Rows)

	var result *matcher.ReconciliationResult
	err := logger.TimedStage(StageMatch, rs.logger, func(sl *logger.StageLogger) error {
		var err error
		result, err = engine.Reconcile()
		if err == nil {
			sl.WithField("records", len(result.Records))
		}
		return err
	})
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryReconciliation, errors.CodeMatchingFailed, "matching failed")
	}
	tracker.complete(StageMatch)

	summary := models.NewSummary(result.Records)
	summary.Statement = statement.Summary
	summary.Settlement = settlement.Summary

	report := &models.Report{
		RunID:       uuid.NewString(),
		ProcessedAt: time.Now().UTC(),
		Duration:    time.Since(start),
		Records:     result.Records,
		Summary:     summary,
	}

	rs.logger.WithFields(logger.Fields{
		"run_id":      report.RunID,
		"records":     summary.TotalRecords,
		"reconciled":  summary.ByStatus[models.Reconciled],
		"mismatched":  summary.ByStatus[models.AmountMismatch],
		"duration_ms": report.Duration.Milliseconds(),
	}).Info("Reconciliation completed")

	return report, nil
}

type progressTracker struct {
	mu        sync.Mutex
	completed int
	callbacks []ProgressCallback
}

func (rs *ReconciliationService) newTracker() *progressTracker {
	return &progressTracker{callbacks: rs.callbacks}
}

func (pt *progressTracker) complete(stage string) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.completed++
	progress := Progress{Stage: stage, CompletedSteps: pt.completed, TotalSteps: totalStages}
	for _, cb := range pt.callbacks {
		cb(progress)
	}
}
