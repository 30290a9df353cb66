package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/simaogato/realfolio-backend/internal/domain"
	"github.com/simaogato/realfolio-backend/internal/usecase/rates"
	"github.com/simaogato/realfolio-backend/internal/usecase/retry"
)

// SourceLoader provides the rate source used for one run
type SourceLoader interface {
	Load(ctx context.Context) (rates.Source, error)
}

// ReconciliationService serializes every ledger mutation behind one lock:
// load snapshot -> apply -> persist.
type ReconciliationService struct {
	LedgerRepo domain.LedgerRepository
	RetryRepo  domain.RetryRepository
	Rates      SourceLoader
	Profiles   domain.CategoryProfiles
	Epsilon    decimal.Decimal
	Now        func() time.Time

	mu  sync.Mutex
	log zerolog.Logger
}

// NewReconciliationService creates a new ReconciliationService instance
func NewReconciliationService(
	ledgerRepo domain.LedgerRepository,
	retryRepo domain.RetryRepository,
	loader SourceLoader,
	profiles domain.CategoryProfiles,
	epsilon decimal.Decimal,
	log zerolog.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		LedgerRepo: ledgerRepo,
		RetryRepo:  retryRepo,
		Rates:      loader,
		Profiles:   profiles,
		Epsilon:    epsilon,
		Now:        time.Now,
		log:        log.With().Str("service", "reconciliation").Logger(),
	}
}

// Reconcile applies a batch of normalized transactions to the stored ledger.
// Transactions rejected for a missing rate are kept as retry tasks; other rejections are returned in the result.
func (s *ReconciliationService) Reconcile(ctx context.Context, txs []domain.Transaction) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reconcile(ctx, txs)
}

// RetryPending re-applies every transaction still waiting for a rate
func (s *ReconciliationService) RetryPending(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.RetryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list retry tasks: %w", err)
	}
	if len(pending) == 0 {
		return &Result{}, nil
	}

	s.log.Debug().Int("pending", len(pending)).Msg("retrying pending transactions")
	return s.reconcile(ctx, retry.Transactions(pending))
}

// ExpireOptions closes option lots that expired before today and persists the result
func (s *ReconciliationService) ExpireOptions(ctx context.Context, today time.Time) ([]domain.ClosedTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.LedgerRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	work := snap.Clone()
	engine := NewEngine(s.Profiles, nil, s.Epsilon)
	closed := engine.ExpireOptions(work, today)
	if len(closed) == 0 {
		return nil, nil
	}

	if err := s.LedgerRepo.Save(ctx, work.Lots, closed); err != nil {
		return nil, fmt.Errorf("failed to save ledger: %w", err)
	}

	for _, trade := range closed {
		s.log.Info().
			Str("ticker", trade.Ticker).
			Str("quantity", trade.Quantity.String()).
			Str("cost_primary", trade.CostPrimary.String()).
			Msg("option expired worthless")
	}
	return closed, nil
}

// Snapshot returns the stored ledger state
func (s *ReconciliationService) Snapshot(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.LedgerRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return snap, nil
}

// PendingTasks lists transactions waiting for a rate
func (s *ReconciliationService) PendingTasks(ctx context.Context) ([]*domain.RetryTask, error) {
	return s.RetryRepo.List(ctx)
}

func (s *ReconciliationService) reconcile(ctx context.Context, txs []domain.Transaction) (*Result, error) {
	source, err := s.Rates.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rates: %w", err)
	}

	snap, err := s.LedgerRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	engine := NewEngine(s.Profiles, source, s.Epsilon)
	result := engine.Apply(snap, txs)

	if len(result.Applied) > 0 {
		if err := s.LedgerRepo.Save(ctx, result.Snapshot.Lots, result.ClosedTrades); err != nil {
			return nil, fmt.Errorf("failed to save ledger: %w", err)
		}
	}

	if err := s.updateRetryTasks(ctx, result); err != nil {
		return nil, err
	}

	for _, rejection := range result.Rejected {
		s.log.Warn().
			Str("transaction_id", rejection.Transaction.ID).
			Str("ticker", rejection.Transaction.Ticker).
			Str("reason", rejection.Reason()).
			Err(rejection.Err).
			Msg("transaction rejected")
	}
	s.log.Info().
		Int("applied", len(result.Applied)).
		Int("skipped", len(result.Skipped)).
		Int("rejected", len(result.Rejected)).
		Int("closed_trades", len(result.ClosedTrades)).
		Msg("reconciliation finished")

	return result, nil
}

func (s *ReconciliationService) updateRetryTasks(ctx context.Context, result *Result) error {
	pending, err := s.RetryRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list retry tasks: %w", err)
	}

	settled := make([]domain.Transaction, 0, len(result.Applied)+len(result.Skipped))
	settled = append(settled, result.Applied...)
	settled = append(settled, result.Skipped...)

	plan := retry.GenerateTasks(pending, settled, result.Rejected, s.Now())

	for _, id := range plan.Deletes {
		if err := s.RetryRepo.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete retry task %s: %w", id, err)
		}
	}
	for _, task := range plan.Upserts {
		if err := s.RetryRepo.Upsert(ctx, task); err != nil {
			return fmt.Errorf("failed to store retry task %s: %w", task.Transaction.ID, err)
		}
	}
	for _, dropped := range plan.Dropped {
		s.log.Error().
			Str("transaction_id", dropped.Transaction.ID).
			Str("reason", dropped.Reason()).
			Err(dropped.Err).
			Msg("pending transaction can no longer be applied")
	}
	return nil
}
