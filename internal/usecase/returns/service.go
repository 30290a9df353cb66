package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/realfolio-backend/internal/domain"
	"github.com/simaogato/realfolio-backend/internal/usecase/rates"
)

// SnapshotReader provides the current ledger state
type SnapshotReader interface {
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
}

// RateLoader provides the rate source used for one report
type RateLoader interface {
	Load(ctx context.Context) (rates.Source, error)
}

// QuoteSource provides current market prices
type QuoteSource interface {
	Quote(ticker string) (Quote, bool)
}

// OpenPositionsReport is the mark-to-market view of the ledger.
// Option lots are reported one by one; every other category is also consolidated per ticker.
type OpenPositionsReport struct {
	AsOf         time.Time
	Consolidated []ConsolidatedPosition
	Lots         []OpenLotReport
	Options      []OpenLotReport
	Excluded     []string // tickers without a current price
}

// ClosedTradesReport is the realized-performance view of the ledger
type ClosedTradesReport struct {
	Trades   []ClosedTradeReport
	ByTicker []ClosedSummary
}

// ReportService builds return reports from the ledger, the rates and the price board
type ReportService struct {
	Ledger       SnapshotReader
	Rates        RateLoader
	Prices       QuoteSource
	Profiles     domain.CategoryProfiles
	PrimaryCPI   string
	SecondaryCPI string
	Now          func() time.Time
	log          zerolog.Logger
}

// NewReportService creates a new ReportService instance
func NewReportService(
	ledger SnapshotReader,
	loader RateLoader,
	prices QuoteSource,
	profiles domain.CategoryProfiles,
	primaryCPI, secondaryCPI string,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		Ledger:       ledger,
		Rates:        loader,
		Prices:       prices,
		Profiles:     profiles,
		PrimaryCPI:   primaryCPI,
		SecondaryCPI: secondaryCPI,
		Now:          time.Now,
		log:          log.With().Str("service", "reports").Logger(),
	}
}

// OpenPositions marks every open lot to market.
// A lot whose ticker has no current price is left out and its ticker listed in Excluded.
func (s *ReportService) OpenPositions(ctx context.Context) (*OpenPositionsReport, error) {
	snap, calc, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}

	today := domain.DayOf(s.Now())
	report := &OpenPositionsReport{AsOf: today}
	excluded := make(map[string]bool)

	for _, lot := range snap.Lots {
		quote, ok := s.Prices.Quote(lot.Ticker)
		if !ok {
			if !excluded[lot.Ticker] {
				excluded[lot.Ticker] = true
				report.Excluded = append(report.Excluded, lot.Ticker)
			}
			continue
		}

		lotReport, err := calc.OpenLot(lot, quote, today)
		if err != nil {
			return nil, fmt.Errorf("failed to value lot %s: %w", lot.ID, err)
		}

		if lot.Category == domain.CategoryOption {
			report.Options = append(report.Options, lotReport)
		} else {
			report.Lots = append(report.Lots, lotReport)
		}
	}

	report.Consolidated = Consolidate(report.Lots)

	s.log.Debug().
		Int("positions", len(report.Consolidated)).
		Int("options", len(report.Options)).
		Int("excluded", len(report.Excluded)).
		Msg("open positions report built")
	return report, nil
}

// ClosedTrades computes realized returns for every closed trade
func (s *ReportService) ClosedTrades(ctx context.Context) (*ClosedTradesReport, error) {
	snap, calc, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}

	report := &ClosedTradesReport{Trades: make([]ClosedTradeReport, 0, len(snap.ClosedTrades))}
	for _, trade := range snap.ClosedTrades {
		report.Trades = append(report.Trades, calc.ClosedTrade(trade))
	}
	report.ByTicker = ConsolidateClosed(report.Trades)
	return report, nil
}

func (s *ReportService) prepare(ctx context.Context) (*domain.Snapshot, *Calculator, error) {
	snap, err := s.Ledger.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	source, err := s.Rates.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rates: %w", err)
	}
	return snap, NewCalculator(source, s.Profiles, s.PrimaryCPI, s.SecondaryCPI), nil
}
