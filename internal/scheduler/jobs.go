package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/realfolio-backend/internal/domain"
	"github.com/simaogato/realfolio-backend/internal/usecase/ledger"
)

// DefaultJobTimeout bounds a single scheduled run
const DefaultJobTimeout = 5 * time.Minute

// OptionExpirer is the part of the reconciliation service the expiry job needs
type OptionExpirer interface {
	ExpireOptions(ctx context.Context, today time.Time) ([]domain.ClosedTrade, error)
}

// PendingRetrier is the part of the reconciliation service the retry job needs
type PendingRetrier interface {
	RetryPending(ctx context.Context) (*ledger.Result, error)
}

// ExpiryJob closes option lots whose expiration date has passed
type ExpiryJob struct {
	service OptionExpirer
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewExpiryJob creates a new option expiration job
func NewExpiryJob(service OptionExpirer, log zerolog.Logger) *ExpiryJob {
	return &ExpiryJob{
		service: service,
		timeout: DefaultJobTimeout,
		now:     time.Now,
		log:     log.With().Str("job", "option_expiry").Logger(),
	}
}

// Name returns the job name
func (j *ExpiryJob) Name() string {
	return "option_expiry"
}

// Run expires every option lot past its expiration date as of today
func (j *ExpiryJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	closed, err := j.service.ExpireOptions(ctx, j.now())
	if err != nil {
		return err
	}

	if len(closed) > 0 {
		j.log.Info().Int("expired", len(closed)).Msg("Expired option lots")
	}
	return nil
}

// RetryJob replays transactions that were waiting on a missing rate
type RetryJob struct {
	service PendingRetrier
	timeout time.Duration
	log     zerolog.Logger
}

// NewRetryJob creates a new pending-transaction retry job
func NewRetryJob(service PendingRetrier, log zerolog.Logger) *RetryJob {
	return &RetryJob{
		service: service,
		timeout: DefaultJobTimeout,
		log:     log.With().Str("job", "retry_pending").Logger(),
	}
}

// Name returns the job name
func (j *RetryJob) Name() string {
	return "retry_pending"
}

// Run applies pending transactions whose rates are now available
func (j *RetryJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.service.RetryPending(ctx)
	if err != nil {
		return err
	}

	if len(result.Applied) > 0 || len(result.Rejected) > 0 {
		j.log.Info().
			Int("applied", len(result.Applied)).
			Int("rejected", len(result.Rejected)).
			Msg("Retried pending transactions")
	}
	return nil
}
