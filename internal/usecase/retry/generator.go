package retry

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// Plan is the set of retry-task changes produced by one reconciliation run
type Plan struct {
	Upserts []*domain.RetryTask
	Deletes []string
	// Dropped lists pending transactions that failed again for a reason a retry cannot fix
	Dropped []domain.Rejection
}

// GenerateTasks works out which pending transactions must be kept for a later run.
//
// Logic:
//   - A rejection caused by a missing rate creates a task, or bumps the attempts of the existing one
//   - Any other rejection is final: it is reported, and a pending task for it is deleted
//   - A pending transaction that was applied or skipped as already known is deleted
func GenerateTasks(pending []*domain.RetryTask, settled []domain.Transaction, rejections []domain.Rejection, now time.Time) Plan {
	byID := make(map[string]*domain.RetryTask, len(pending))
	for _, task := range pending {
		byID[task.Transaction.ID] = task
	}

	plan := Plan{}

	for _, tx := range settled {
		if _, ok := byID[tx.ID]; ok {
			plan.Deletes = append(plan.Deletes, tx.ID)
		}
	}

	for _, rejection := range rejections {
		id := rejection.Transaction.ID
		existing, isPending := byID[id]

		if !rejection.Retryable() {
			if isPending {
				plan.Deletes = append(plan.Deletes, id)
				plan.Dropped = append(plan.Dropped, rejection)
			}
			continue
		}

		if id == "" {
			// a transaction without an id can never be matched on a later run
			continue
		}

		if isPending {
			task := *existing
			task.Attempts++
			task.Reason = rejection.Err.Error()
			task.LastAttempt = now
			task.Transaction = rejection.Transaction
			plan.Upserts = append(plan.Upserts, &task)
			continue
		}

		plan.Upserts = append(plan.Upserts, &domain.RetryTask{
			ID:          uuid.New(),
			Transaction: rejection.Transaction,
			Reason:      rejection.Err.Error(),
			Attempts:    1,
			FirstSeen:   now,
			LastAttempt: now,
		})
	}

	return plan
}

// Transactions returns the transactions carried by tasks, oldest timestamp first
func Transactions(tasks []*domain.RetryTask) []domain.Transaction {
	txs := make([]domain.Transaction, 0, len(tasks))
	for _, task := range tasks {
		txs = append(txs, task.Transaction)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})
	return txs
}
