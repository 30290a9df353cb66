package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// ledgerRepository implements domain.LedgerRepository
type ledgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *DB) domain.LedgerRepository {
	return &ledgerRepository{db: db}
}

// Load retrieves open lots in insertion order and closed trades in append order
func (r *ledgerRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{Lots: []domain.Lot{}, ClosedTrades: []domain.ClosedTrade{}}

	lotsQuery := `
		SELECT id, ticker, open_date, remaining_quantity, cost_primary, cost_secondary,
		       category, currency, source_transaction_id,
		       option_underlying, option_right, option_strike, option_expiration
		FROM lots
		ORDER BY ordinal
	`

	rows, err := r.db.QueryContext(ctx, lotsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lot domain.Lot
		var quantityStr, costPrimaryStr, costSecondaryStr, category, currency string
		var underlying, right, strike sql.NullString
		var expiration sql.NullTime

		if err := rows.Scan(
			&lot.ID,
			&lot.Ticker,
			&lot.OpenDate,
			&quantityStr,
			&costPrimaryStr,
			&costSecondaryStr,
			&category,
			&currency,
			&lot.SourceTransactionID,
			&underlying,
			&right,
			&strike,
			&expiration,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}

		if lot.RemainingQuantity, err = parseDecimal(quantityStr, "remaining_quantity"); err != nil {
			return nil, err
		}
		if lot.CostPrimary, err = parseDecimal(costPrimaryStr, "cost_primary"); err != nil {
			return nil, err
		}
		if lot.CostSecondary, err = parseDecimal(costSecondaryStr, "cost_secondary"); err != nil {
			return nil, err
		}
		lot.OpenDate = domain.DayOf(lot.OpenDate)
		lot.Category = domain.AssetCategory(category)
		lot.Currency = domain.Currency(currency)

		if underlying.Valid {
			strikePrice, err := parseDecimal(strike.String, "option_strike")
			if err != nil {
				return nil, err
			}
			lot.Option = &domain.OptionDetails{
				Underlying:     underlying.String,
				Right:          domain.OptionRight(right.String),
				StrikePrice:    strikePrice,
				ExpirationDate: domain.DayOf(expiration.Time),
			}
		}

		snap.Lots = append(snap.Lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}

	tradesQuery := `
		SELECT id, ticker, category, quantity, buy_date, sell_date,
		       cost_primary, cost_secondary, revenue_primary, revenue_secondary,
		       buy_transaction_id, sell_transaction_id, expired
		FROM closed_trades
		ORDER BY seq
	`

	tradeRows, err := r.db.QueryContext(ctx, tradesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed trades: %w", err)
	}
	defer tradeRows.Close()

	for tradeRows.Next() {
		var trade domain.ClosedTrade
		var category string
		amounts := make([]string, 5)

		if err := tradeRows.Scan(
			&trade.ID,
			&trade.Ticker,
			&category,
			&amounts[0],
			&trade.BuyDate,
			&trade.SellDate,
			&amounts[1],
			&amounts[2],
			&amounts[3],
			&amounts[4],
			&trade.BuyTransactionID,
			&trade.SellTransactionID,
			&trade.Expired,
		); err != nil {
			return nil, fmt.Errorf("failed to scan closed trade: %w", err)
		}

		parsed, err := parseDecimals(amounts, "quantity", "cost_primary", "cost_secondary", "revenue_primary", "revenue_secondary")
		if err != nil {
			return nil, err
		}
		trade.Quantity = parsed[0]
		trade.CostPrimary = parsed[1]
		trade.CostSecondary = parsed[2]
		trade.RevenuePrimary = parsed[3]
		trade.RevenueSecondary = parsed[4]
		trade.Category = domain.AssetCategory(category)
		trade.BuyDate = domain.DayOf(trade.BuyDate)
		trade.SellDate = domain.DayOf(trade.SellDate)

		snap.ClosedTrades = append(snap.ClosedTrades, trade)
	}
	if err := tradeRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closed trades: %w", err)
	}

	return snap, nil
}

// Save replaces the open lots and appends closed trades in a single database transaction.
// Closed trades already stored are left untouched.
func (r *ledgerRepository) Save(ctx context.Context, lots []domain.Lot, appended []domain.ClosedTrade) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM lots`); err != nil {
		return fmt.Errorf("failed to clear lots: %w", err)
	}

	insertLotQuery := `
		INSERT INTO lots (id, ordinal, ticker, open_date, remaining_quantity, cost_primary, cost_secondary,
		                  category, currency, source_transaction_id,
		                  option_underlying, option_right, option_strike, option_expiration)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	for i, lot := range lots {
		var underlying, right, strike sql.NullString
		var expiration sql.NullTime
		if lot.Option != nil {
			underlying = sql.NullString{String: lot.Option.Underlying, Valid: true}
			right = sql.NullString{String: string(lot.Option.Right), Valid: true}
			strike = sql.NullString{String: lot.Option.StrikePrice.String(), Valid: true}
			expiration = sql.NullTime{Time: lot.Option.ExpirationDate, Valid: !lot.Option.ExpirationDate.IsZero()}
		}

		_, err = dbTx.ExecContext(ctx, insertLotQuery,
			lot.ID,
			i,
			lot.Ticker,
			lot.OpenDate,
			lot.RemainingQuantity.String(),
			lot.CostPrimary.String(),
			lot.CostSecondary.String(),
			string(lot.Category),
			string(lot.Currency),
			lot.SourceTransactionID,
			underlying,
			right,
			strike,
			expiration,
		)
		if err != nil {
			return fmt.Errorf("failed to insert lot %s: %w", lot.ID, err)
		}
	}

	insertTradeQuery := `
		INSERT INTO closed_trades (id, ticker, category, quantity, buy_date, sell_date,
		                           cost_primary, cost_secondary, revenue_primary, revenue_secondary,
		                           buy_transaction_id, sell_transaction_id, expired)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`

	for _, trade := range appended {
		_, err = dbTx.ExecContext(ctx, insertTradeQuery,
			trade.ID,
			trade.Ticker,
			string(trade.Category),
			trade.Quantity.String(),
			trade.BuyDate,
			trade.SellDate,
			trade.CostPrimary.String(),
			trade.CostSecondary.String(),
			trade.RevenuePrimary.String(),
			trade.RevenueSecondary.String(),
			trade.BuyTransactionID,
			trade.SellTransactionID,
			trade.Expired,
		)
		if err != nil {
			return fmt.Errorf("failed to insert closed trade %s: %w", trade.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func parseDecimal(value, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse %s: %w", field, err)
	}
	return d, nil
}

func parseDecimals(values []string, fields ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := parseDecimal(v, fields[i])
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}
