package postgres

import (
	"context"
	"fmt"

	"github.com/simaogato/realfolio-backend/internal/adapter/repository/payload"
	"github.com/simaogato/realfolio-backend/internal/domain"
)

// retryRepository implements domain.RetryRepository
type retryRepository struct {
	db *DB
}

// NewRetryRepository creates a new retry task repository
func NewRetryRepository(db *DB) domain.RetryRepository {
	return &retryRepository{db: db}
}

// List retrieves all pending tasks ordered by transaction timestamp
func (r *retryRepository) List(ctx context.Context) ([]*domain.RetryTask, error) {
	query := `
		SELECT id, reason, attempts, first_seen, last_attempt, payload
		FROM retry_tasks
		ORDER BY occurred_at, transaction_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list retry tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.RetryTask
	for rows.Next() {
		var task domain.RetryTask
		var data []byte

		if err := rows.Scan(&task.ID, &task.Reason, &task.Attempts, &task.FirstSeen, &task.LastAttempt, &data); err != nil {
			return nil, fmt.Errorf("failed to scan retry task: %w", err)
		}

		tx, err := payload.DecodeTransaction(data)
		if err != nil {
			return nil, err
		}
		task.Transaction = tx
		task.FirstSeen = task.FirstSeen.UTC()
		task.LastAttempt = task.LastAttempt.UTC()

		tasks = append(tasks, &task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating retry tasks: %w", err)
	}

	return tasks, nil
}

// Upsert creates or updates the task of a transaction
func (r *retryRepository) Upsert(ctx context.Context, task *domain.RetryTask) error {
	data, err := payload.EncodeTransaction(task.Transaction)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO retry_tasks (id, transaction_id, occurred_at, reason, attempts, first_seen, last_attempt, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (transaction_id) DO UPDATE SET
			reason = EXCLUDED.reason,
			attempts = EXCLUDED.attempts,
			last_attempt = EXCLUDED.last_attempt,
			payload = EXCLUDED.payload
	`

	_, err = r.db.ExecContext(ctx, query,
		task.ID,
		task.Transaction.ID,
		task.Transaction.Timestamp,
		task.Reason,
		task.Attempts,
		task.FirstSeen,
		task.LastAttempt,
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert retry task for %s: %w", task.Transaction.ID, err)
	}

	return nil
}

// Delete removes the task of a transaction, if any
func (r *retryRepository) Delete(ctx context.Context, transactionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM retry_tasks WHERE transaction_id = $1`, transactionID); err != nil {
		return fmt.Errorf("failed to delete retry task for %s: %w", transactionID, err)
	}
	return nil
}
