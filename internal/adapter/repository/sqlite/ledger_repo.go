package sqlite

import (
	"context"
	"database/sql"
	"fmt"

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
	lots, err := r.loadLots(ctx)
	if err != nil {
		return nil, err
	}
	trades, err := r.loadClosedTrades(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Snapshot{Lots: lots, ClosedTrades: trades}, nil
}

func (r *ledgerRepository) loadLots(ctx context.Context) ([]domain.Lot, error) {
	query := `
		SELECT id, ticker, open_date, remaining_quantity, cost_primary, cost_secondary,
		       category, currency, source_transaction_id,
		       option_underlying, option_right, option_strike, option_expiration
		FROM lots
		ORDER BY ordinal
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	lots := []domain.Lot{}
	for rows.Next() {
		var lot domain.Lot
		var openDate, quantity, costPrimary, costSecondary, category, currency string
		var underlying, right, strike, expiration sql.NullString

		if err := rows.Scan(&lot.ID, &lot.Ticker, &openDate, &quantity, &costPrimary, &costSecondary,
			&category, &currency, &lot.SourceTransactionID,
			&underlying, &right, &strike, &expiration); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}

		if lot.OpenDate, err = parseDate(openDate, "open_date"); err != nil {
			return nil, err
		}
		if lot.RemainingQuantity, err = parseDecimal(quantity, "remaining_quantity"); err != nil {
			return nil, err
		}
		if lot.CostPrimary, err = parseDecimal(costPrimary, "cost_primary"); err != nil {
			return nil, err
		}
		if lot.CostSecondary, err = parseDecimal(costSecondary, "cost_secondary"); err != nil {
			return nil, err
		}
		lot.Category = domain.AssetCategory(category)
		lot.Currency = domain.Currency(currency)

		if underlying.Valid {
			option := &domain.OptionDetails{Underlying: underlying.String, Right: domain.OptionRight(right.String)}
			if option.StrikePrice, err = parseDecimal(strike.String, "option_strike"); err != nil {
				return nil, err
			}
			if expiration.Valid {
				if option.ExpirationDate, err = parseDate(expiration.String, "option_expiration"); err != nil {
					return nil, err
				}
			}
			lot.Option = option
		}

		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}

	return lots, nil
}

func (r *ledgerRepository) loadClosedTrades(ctx context.Context) ([]domain.ClosedTrade, error) {
	query := `
		SELECT id, ticker, category, quantity, buy_date, sell_date,
		       cost_primary, cost_secondary, revenue_primary, revenue_secondary,
		       buy_transaction_id, sell_transaction_id, expired
		FROM closed_trades
		ORDER BY seq
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed trades: %w", err)
	}
	defer rows.Close()

	trades := []domain.ClosedTrade{}
	for rows.Next() {
		var trade domain.ClosedTrade
		var category, quantity, buyDate, sellDate, costPrimary, costSecondary, revenuePrimary, revenueSecondary string

		if err := rows.Scan(&trade.ID, &trade.Ticker, &category, &quantity, &buyDate, &sellDate,
			&costPrimary, &costSecondary, &revenuePrimary, &revenueSecondary,
			&trade.BuyTransactionID, &trade.SellTransactionID, &trade.Expired); err != nil {
			return nil, fmt.Errorf("failed to scan closed trade: %w", err)
		}

		trade.Category = domain.AssetCategory(category)
		if trade.Quantity, err = parseDecimal(quantity, "quantity"); err != nil {
			return nil, err
		}
		if trade.BuyDate, err = parseDate(buyDate, "buy_date"); err != nil {
			return nil, err
		}
		if trade.SellDate, err = parseDate(sellDate, "sell_date"); err != nil {
			return nil, err
		}
		if trade.CostPrimary, err = parseDecimal(costPrimary, "cost_primary"); err != nil {
			return nil, err
		}
		if trade.CostSecondary, err = parseDecimal(costSecondary, "cost_secondary"); err != nil {
			return nil, err
		}
		if trade.RevenuePrimary, err = parseDecimal(revenuePrimary, "revenue_primary"); err != nil {
			return nil, err
		}
		if trade.RevenueSecondary, err = parseDecimal(revenueSecondary, "revenue_secondary"); err != nil {
			return nil, err
		}

		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closed trades: %w", err)
	}

	return trades, nil
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i, lot := range lots {
		var underlying, right, strike, expiration sql.NullString
		if lot.Option != nil {
			underlying = nullString(lot.Option.Underlying, true)
			right = nullString(string(lot.Option.Right), true)
			strike = nullString(lot.Option.StrikePrice.String(), true)
			expiration = nullString(formatDate(lot.Option.ExpirationDate), !lot.Option.ExpirationDate.IsZero())
		}

		_, err = dbTx.ExecContext(ctx, insertLotQuery,
			lot.ID.String(),
			i,
			lot.Ticker,
			formatDate(lot.OpenDate),
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`

	for _, trade := range appended {
		_, err = dbTx.ExecContext(ctx, insertTradeQuery,
			trade.ID.String(),
			trade.Ticker,
			string(trade.Category),
			trade.Quantity.String(),
			formatDate(trade.BuyDate),
			formatDate(trade.SellDate),
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
