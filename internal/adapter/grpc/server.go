package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/realfolio-backend/internal/domain"
	"github.com/simaogato/realfolio-backend/internal/usecase/ledger"
	"github.com/simaogato/realfolio-backend/internal/usecase/normalizer"
	"github.com/simaogato/realfolio-backend/internal/usecase/rates"
	"github.com/simaogato/realfolio-backend/internal/usecase/returns"
)

// Server implements the LedgerService gRPC server
type Server struct {
	LedgerService *ledger.ReconciliationService
	Normalizer    *normalizer.Normalizer
	RateService   *rates.RateService
	ReportService *returns.ReportService
	PriceBoard    *returns.PriceBoard

	PrimaryCurrency   string
	SecondaryCurrency string
	Now               func() time.Time
}

var _ LedgerServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	ledgerService *ledger.ReconciliationService,
	orderNormalizer *normalizer.Normalizer,
	rateService *rates.RateService,
	reportService *returns.ReportService,
	priceBoard *returns.PriceBoard,
) *Server {
	return &Server{
		LedgerService:     ledgerService,
		Normalizer:        orderNormalizer,
		RateService:       rateService,
		ReportService:     reportService,
		PriceBoard:        priceBoard,
		PrimaryCurrency:   orderNormalizer.PrimaryCode,
		SecondaryCurrency: orderNormalizer.SecondaryCode,
		Now:               time.Now,
	}
}

// ApplyTransactions handles the ApplyTransactions RPC
func (s *Server) ApplyTransactions(ctx context.Context, req *ApplyTransactionsRequest) (*ReconcileResponse, error) {
	if len(req.Transactions) == 0 {
		return nil, status.Error(codes.InvalidArgument, "transactions cannot be empty")
	}

	txs := make([]domain.Transaction, 0, len(req.Transactions))
	for _, msg := range req.Transactions {
		tx, err := toDomainTransaction(msg)
		if err != nil {
			return nil, mapError(err)
		}
		txs = append(txs, tx)
	}

	result, err := s.LedgerService.Reconcile(ctx, txs)
	if err != nil {
		return nil, mapError(err)
	}

	resp := toReconcileResponse(result)
	return &resp, nil
}

// SubmitBrokerOrders handles the SubmitBrokerOrders RPC
// Logic:
//  1. Normalize every order; skipped and malformed orders are reported, not fatal
//  2. Reconcile the resulting transactions in one run
func (s *Server) SubmitBrokerOrders(ctx context.Context, req *SubmitBrokerOrdersRequest) (*SubmitBrokerOrdersResponse, error) {
	batch := s.Normalizer.NormalizeAll(req.Orders)

	resp := &SubmitBrokerOrdersResponse{
		Reconcile:     ReconcileResponse{Applied: []string{}, Skipped: []string{}, Rejected: []RejectionMessage{}, ClosedTrades: []ClosedTradeMessage{}},
		SkippedOrders: toFailureMessages(batch.Skipped),
		FailedOrders:  toFailureMessages(batch.Failed),
	}

	if len(batch.Transactions) > 0 {
		result, err := s.LedgerService.Reconcile(ctx, batch.Transactions)
		if err != nil {
			return nil, mapError(err)
		}
		resp.Reconcile = toReconcileResponse(result)
	}

	return resp, nil
}

// ExpireOptions handles the ExpireOptions RPC
func (s *Server) ExpireOptions(ctx context.Context, req *ExpireOptionsRequest) (*ExpireOptionsResponse, error) {
	today := s.Now()
	if req.Today != "" {
		var err error
		if today, err = parseTimestamp(req.Today, "today"); err != nil {
			return nil, err
		}
	}

	closed, err := s.LedgerService.ExpireOptions(ctx, today)
	if err != nil {
		return nil, mapError(err)
	}

	return &ExpireOptionsResponse{Expired: toClosedTradeMessages(closed)}, nil
}

// RetryPending handles the RetryPending RPC
func (s *Server) RetryPending(ctx context.Context, req *RetryPendingRequest) (*ReconcileResponse, error) {
	result, err := s.LedgerService.RetryPending(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	resp := toReconcileResponse(result)
	return &resp, nil
}

// UpsertRatePoints handles the UpsertRatePoints RPC
func (s *Server) UpsertRatePoints(ctx context.Context, req *UpsertRatePointsRequest) (*UpsertRatePointsResponse, error) {
	name := strings.TrimSpace(req.Series)
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "series cannot be empty")
	}

	points, err := toRatePoints(req.Points)
	if err != nil {
		return nil, mapError(err)
	}

	if req.Kind != "" {
		if err := s.RateService.Register(ctx, name, domain.SeriesKind(strings.ToLower(req.Kind))); err != nil {
			return nil, mapError(err)
		}
	}

	stored, err := s.RateService.UpsertPoints(ctx, name, points)
	if err != nil {
		return nil, mapError(err)
	}

	return &UpsertRatePointsResponse{Series: name, Stored: stored}, nil
}

// PublishPrices handles the PublishPrices RPC
func (s *Server) PublishPrices(ctx context.Context, req *PublishPricesRequest) (*PublishPricesResponse, error) {
	now := s.Now()
	quotes := make([]returns.Quote, 0, len(req.Quotes))
	for _, msg := range req.Quotes {
		quote, err := toQuote(msg, now)
		if err != nil {
			return nil, mapError(err)
		}
		quotes = append(quotes, quote)
	}

	s.PriceBoard.Publish(quotes...)

	return &PublishPricesResponse{Accepted: len(quotes)}, nil
}

// GetOpenPositions handles the GetOpenPositions RPC
func (s *Server) GetOpenPositions(ctx context.Context, req *GetOpenPositionsRequest) (*GetOpenPositionsResponse, error) {
	report, err := s.ReportService.OpenPositions(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	positions := make([]PositionMessage, 0, len(report.Consolidated))
	for _, p := range report.Consolidated {
		positions = append(positions, toPositionMessage(p))
	}

	excluded := report.Excluded
	if excluded == nil {
		excluded = []string{}
	}

	return &GetOpenPositionsResponse{
		AsOf:              formatDate(report.AsOf),
		PrimaryCurrency:   s.PrimaryCurrency,
		SecondaryCurrency: s.SecondaryCurrency,
		Positions:         positions,
		Lots:              toOpenLotMessages(report.Lots),
		Options:           toOpenLotMessages(report.Options),
		Excluded:          excluded,
	}, nil
}

// GetClosedTrades handles the GetClosedTrades RPC
func (s *Server) GetClosedTrades(ctx context.Context, req *GetClosedTradesRequest) (*GetClosedTradesResponse, error) {
	report, err := s.ReportService.ClosedTrades(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	trades := make([]ClosedTradeReportMessage, 0, len(report.Trades))
	for _, r := range report.Trades {
		trades = append(trades, toClosedReportMessage(r))
	}
	byTicker := make([]ClosedSummaryMessage, 0, len(report.ByTicker))
	for _, summary := range report.ByTicker {
		byTicker = append(byTicker, toClosedSummaryMessage(summary))
	}

	return &GetClosedTradesResponse{
		PrimaryCurrency:   s.PrimaryCurrency,
		SecondaryCurrency: s.SecondaryCurrency,
		Trades:            trades,
		ByTicker:          byTicker,
	}, nil
}

func toFailureMessages(failures []normalizer.Failure) []OrderFailureMessage {
	out := make([]OrderFailureMessage, 0, len(failures))
	for _, f := range failures {
		out = append(out, OrderFailureMessage{OrderID: f.OrderID, Message: f.Err.Error()})
	}
	return out
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	errorMsg := err.Error()

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", errorMsg)
	case errors.Is(err, domain.ErrMalformedTransaction):
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	case errors.Is(err, domain.ErrInsufficientQuantity):
		return status.Errorf(codes.FailedPrecondition, "%s", errorMsg)
	case errors.Is(err, domain.ErrRateUnavailable):
		return status.Errorf(codes.FailedPrecondition, "%s", errorMsg)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return status.Errorf(codes.Unavailable, "%s", errorMsg)
	}

	// Map common validation errors to InvalidArgument
	if strings.Contains(errorMsg, "cannot be empty") ||
		strings.Contains(errorMsg, "non-positive") ||
		strings.Contains(errorMsg, "unknown kind") ||
		strings.Contains(errorMsg, "invalid") {
		return status.Errorf(codes.InvalidArgument, "%s", errorMsg)
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", errorMsg)
}
