package retry

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

func sampleTx(id string, ts time.Time) domain.Transaction {
	return domain.Transaction{
		ID:        id,
		Timestamp: ts,
		Ticker:    "GGAL",
		Operation: domain.OperationBuy,
		Category:  domain.CategoryEquity,
		Quantity:  decimal.NewFromInt(10),
		UnitPrice: decimal.NewFromInt(100),
		Currency:  domain.CurrencyPrimary,
	}
}

func TestGenerateTasks_RateUnavailableCreatesTask(t *testing.T) {
	// A buy dated after the last published exchange rate cannot be converted yet
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tx := sampleTx("buy-1", now.Add(-time.Hour))

	plan := GenerateTasks(nil, nil, []domain.Rejection{
		{Transaction: tx, Err: &domain.RateUnavailableError{Series: "dolar_mep", Date: domain.DayOf(now)}},
	}, now)

	require.Len(t, plan.Upserts, 1)
	assert.Equal(t, "buy-1", plan.Upserts[0].Transaction.ID)
	assert.Equal(t, 1, plan.Upserts[0].Attempts)
	assert.Equal(t, now, plan.Upserts[0].FirstSeen)
	assert.Contains(t, plan.Upserts[0].Reason, "dolar_mep")
	assert.Empty(t, plan.Deletes)
}

func TestGenerateTasks_SecondFailureBumpsAttempts(t *testing.T) {
	firstSeen := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := firstSeen.Add(2 * time.Hour)
	tx := sampleTx("buy-1", firstSeen)
	existing := &domain.RetryTask{ID: uuid.New(), Transaction: tx, Attempts: 1, FirstSeen: firstSeen, LastAttempt: firstSeen}

	plan := GenerateTasks([]*domain.RetryTask{existing}, nil, []domain.Rejection{
		{Transaction: tx, Err: &domain.RateUnavailableError{Series: "dolar_mep", Date: firstSeen}},
	}, now)

	require.Len(t, plan.Upserts, 1)
	assert.Equal(t, existing.ID, plan.Upserts[0].ID)
	assert.Equal(t, 2, plan.Upserts[0].Attempts)
	assert.Equal(t, firstSeen, plan.Upserts[0].FirstSeen)
	assert.Equal(t, now, plan.Upserts[0].LastAttempt)
	assert.Equal(t, 1, existing.Attempts, "pending task must not be modified in place")
}

func TestGenerateTasks_AppliedTaskIsDeleted(t *testing.T) {
	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	tx := sampleTx("buy-1", now)
	existing := &domain.RetryTask{ID: uuid.New(), Transaction: tx, Attempts: 3}

	plan := GenerateTasks([]*domain.RetryTask{existing}, []domain.Transaction{tx}, nil, now)

	assert.Empty(t, plan.Upserts)
	assert.Equal(t, []string{"buy-1"}, plan.Deletes)
}

func TestGenerateTasks_FinalRejectionDropsPendingTask(t *testing.T) {
	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	tx := sampleTx("sell-1", now)
	tx.Operation = domain.OperationSell
	existing := &domain.RetryTask{ID: uuid.New(), Transaction: tx, Attempts: 1}
	rejection := domain.Rejection{
		Transaction: tx,
		Err:         &domain.InsufficientQuantityError{Ticker: "GGAL", Requested: decimal.NewFromInt(10), Available: decimal.Zero},
	}

	plan := GenerateTasks([]*domain.RetryTask{existing}, nil, []domain.Rejection{rejection}, now)

	assert.Empty(t, plan.Upserts)
	assert.Equal(t, []string{"sell-1"}, plan.Deletes)
	require.Len(t, plan.Dropped, 1)
	assert.Equal(t, "INSUFFICIENT_QUANTITY", plan.Dropped[0].Reason())
}

func TestGenerateTasks_NonRetryableWithoutTaskIsIgnored(t *testing.T) {
	now := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	plan := GenerateTasks(nil, nil, []domain.Rejection{
		{Transaction: sampleTx("x", now), Err: domain.ErrMalformedTransaction},
	}, now)

	assert.Empty(t, plan.Upserts)
	assert.Empty(t, plan.Deletes)
	assert.Empty(t, plan.Dropped)
}

func TestTransactions_OrderedByTimestamp(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := []*domain.RetryTask{
		{Transaction: sampleTx("late", base.Add(48*time.Hour))},
		{Transaction: sampleTx("early", base)},
	}

	txs := Transactions(tasks)

	require.Len(t, txs, 2)
	assert.Equal(t, "early", txs[0].ID)
	assert.Equal(t, "late", txs[1].ID)
}
