package grpc

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/simaogato/realfolio-backend/internal/domain"
	"github.com/simaogato/realfolio-backend/internal/usecase/ledger"
	"github.com/simaogato/realfolio-backend/internal/usecase/returns"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	domain.DateLayout,
}

// parseTimestamp keeps the wall-clock time of the value, like the broker order path
func parseTimestamp(value, field string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return domain.WallClock(t), nil
		}
	}
	return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: %q", field, value)
}

func parseAmount(value, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", field, err)
	}
	return d, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}

func formatNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func toDomainTransaction(msg TransactionMessage) (domain.Transaction, error) {
	tx := domain.Transaction{
		ID:        strings.TrimSpace(msg.ID),
		Ticker:    strings.ToUpper(strings.TrimSpace(msg.Ticker)),
		Operation: domain.Operation(strings.ToUpper(msg.Operation)),
		Category:  domain.AssetCategory(strings.ToUpper(msg.Category)),
		Currency:  domain.Currency(strings.ToUpper(msg.Currency)),
	}

	var err error
	if tx.Timestamp, err = parseTimestamp(msg.Timestamp, "timestamp"); err != nil {
		return tx, err
	}

	// quantity and price are required; absent fees and tax mean zero
	amounts := []struct {
		value    string
		field    string
		required bool
		dst      *decimal.Decimal
	}{
		{msg.Quantity, "quantity", true, &tx.Quantity},
		{msg.UnitPrice, "unit_price", true, &tx.UnitPrice},
		{msg.MarketFee, "market_fee", false, &tx.MarketFee},
		{msg.BrokerFee, "broker_fee", false, &tx.BrokerFee},
		{msg.Tax, "tax", false, &tx.Tax},
	}
	for _, a := range amounts {
		if a.required && strings.TrimSpace(a.value) == "" {
			return tx, fmt.Errorf("%w: transaction %q: %s is required", domain.ErrMalformedTransaction, tx.ID, a.field)
		}
		if *a.dst, err = parseAmount(a.value, a.field); err != nil {
			return tx, err
		}
	}

	if msg.Option != nil {
		option := &domain.OptionDetails{
			Underlying: strings.ToUpper(msg.Option.Underlying),
			Right:      domain.OptionRight(strings.ToUpper(msg.Option.Right)),
		}
		if option.StrikePrice, err = parseAmount(msg.Option.StrikePrice, "strike_price"); err != nil {
			return tx, err
		}
		if msg.Option.ExpirationDate != "" {
			expiration, err := parseTimestamp(msg.Option.ExpirationDate, "expiration_date")
			if err != nil {
				return tx, err
			}
			option.ExpirationDate = domain.DayOf(expiration)
		}
		tx.Option = option
	}

	return tx, nil
}

func toOptionMessage(option *domain.OptionDetails) *OptionMessage {
	if option == nil {
		return nil
	}
	return &OptionMessage{
		Underlying:     option.Underlying,
		Right:          string(option.Right),
		StrikePrice:    option.StrikePrice.String(),
		ExpirationDate: formatDate(option.ExpirationDate),
	}
}

func toClosedTradeMessage(trade domain.ClosedTrade) ClosedTradeMessage {
	return ClosedTradeMessage{
		ID:                trade.ID.String(),
		Ticker:            trade.Ticker,
		Category:          string(trade.Category),
		Quantity:          trade.Quantity.String(),
		BuyDate:           formatDate(trade.BuyDate),
		SellDate:          formatDate(trade.SellDate),
		CostPrimary:       trade.CostPrimary.String(),
		CostSecondary:     trade.CostSecondary.String(),
		RevenuePrimary:    trade.RevenuePrimary.String(),
		RevenueSecondary:  trade.RevenueSecondary.String(),
		BuyTransactionID:  trade.BuyTransactionID,
		SellTransactionID: trade.SellTransactionID,
		Expired:           trade.Expired,
	}
}

func toClosedTradeMessages(trades []domain.ClosedTrade) []ClosedTradeMessage {
	out := make([]ClosedTradeMessage, 0, len(trades))
	for _, trade := range trades {
		out = append(out, toClosedTradeMessage(trade))
	}
	return out
}

func toReconcileResponse(result *ledger.Result) ReconcileResponse {
	resp := ReconcileResponse{
		Applied:      make([]string, 0, len(result.Applied)),
		Skipped:      make([]string, 0, len(result.Skipped)),
		Rejected:     make([]RejectionMessage, 0, len(result.Rejected)),
		ClosedTrades: toClosedTradeMessages(result.ClosedTrades),
	}
	for _, tx := range result.Applied {
		resp.Applied = append(resp.Applied, tx.ID)
	}
	for _, tx := range result.Skipped {
		resp.Skipped = append(resp.Skipped, tx.ID)
	}
	for _, r := range result.Rejected {
		resp.Rejected = append(resp.Rejected, RejectionMessage{
			TransactionID: r.Transaction.ID,
			Reason:        r.Reason(),
			Message:       r.Err.Error(),
			Retryable:     r.Retryable(),
		})
	}
	if result.Snapshot != nil {
		resp.OpenLots = len(result.Snapshot.Lots)
	}
	return resp
}

func toOpenLotMessage(r returns.OpenLotReport) OpenLotMessage {
	return OpenLotMessage{
		LotID:                r.Lot.ID.String(),
		Ticker:               r.Lot.Ticker,
		Category:             string(r.Lot.Category),
		OpenDate:             formatDate(r.Lot.OpenDate),
		Quantity:             r.Lot.RemainingQuantity.String(),
		CostPrimary:          r.Lot.CostPrimary.String(),
		CostSecondary:        r.Lot.CostSecondary.String(),
		Price:                r.Price.String(),
		PriceCurrency:        string(r.PriceCurrency),
		MarketValuePrimary:   formatNull(r.MarketValuePrimary),
		MarketValueSecondary: formatNull(r.MarketValueSecondary),
		NominalPrimaryPct:    formatNull(r.NominalPrimaryPct),
		NominalSecondaryPct:  formatNull(r.NominalSecondaryPct),
		RealPrimaryPct:       formatNull(r.RealPrimaryPct),
		RealSecondaryPct:     formatNull(r.RealSecondaryPct),
		AgeDays:              r.AgeDays,
		Option:               toOptionMessage(r.Lot.Option),
	}
}

func toOpenLotMessages(reports []returns.OpenLotReport) []OpenLotMessage {
	out := make([]OpenLotMessage, 0, len(reports))
	for _, r := range reports {
		out = append(out, toOpenLotMessage(r))
	}
	return out
}

func toPositionMessage(p returns.ConsolidatedPosition) PositionMessage {
	return PositionMessage{
		Ticker:               p.Ticker,
		Category:             string(p.Category),
		Lots:                 p.Lots,
		Quantity:             p.Quantity.String(),
		CostPrimary:          p.CostPrimary.String(),
		CostSecondary:        p.CostSecondary.String(),
		MarketValuePrimary:   formatNull(p.MarketValuePrimary),
		MarketValueSecondary: formatNull(p.MarketValueSecondary),
		NominalPrimaryPct:    formatNull(p.NominalPrimaryPct),
		NominalSecondaryPct:  formatNull(p.NominalSecondaryPct),
		RealPrimaryPct:       formatNull(p.RealPrimaryPct),
		RealSecondaryPct:     formatNull(p.RealSecondaryPct),
		FirstBuyDate:         formatDate(p.FirstBuyDate),
		AgeDays:              p.AgeDays,
	}
}

func toClosedReportMessage(r returns.ClosedTradeReport) ClosedTradeReportMessage {
	return ClosedTradeReportMessage{
		Trade:               toClosedTradeMessage(r.Trade),
		NominalPrimaryPct:   r.NominalPrimaryPct.String(),
		NominalSecondaryPct: r.NominalSecondaryPct.String(),
		RealPrimaryPct:      formatNull(r.RealPrimaryPct),
		RealSecondaryPct:    formatNull(r.RealSecondaryPct),
	}
}

func toClosedSummaryMessage(s returns.ClosedSummary) ClosedSummaryMessage {
	return ClosedSummaryMessage{
		Ticker:              s.Ticker,
		Trades:              s.Trades,
		Quantity:            s.Quantity.String(),
		CostPrimary:         s.CostPrimary.String(),
		CostSecondary:       s.CostSecondary.String(),
		RevenuePrimary:      s.RevenuePrimary.String(),
		RevenueSecondary:    s.RevenueSecondary.String(),
		NominalPrimaryPct:   s.NominalPrimaryPct.String(),
		NominalSecondaryPct: s.NominalSecondaryPct.String(),
		RealPrimaryPct:      formatNull(s.RealPrimaryPct),
		RealSecondaryPct:    formatNull(s.RealSecondaryPct),
		FirstBuyDate:        formatDate(s.FirstBuyDate),
		LastSellDate:        formatDate(s.LastSellDate),
	}
}

func toQuote(msg QuoteMessage, now time.Time) (returns.Quote, error) {
	ticker := strings.ToUpper(strings.TrimSpace(msg.Ticker))
	if ticker == "" {
		return returns.Quote{}, status.Error(codes.InvalidArgument, "quote ticker cannot be empty")
	}
	price, err := parseAmount(msg.Price, "price")
	if err != nil {
		return returns.Quote{}, err
	}
	if !price.IsPositive() {
		return returns.Quote{}, status.Errorf(codes.InvalidArgument, "price of %s must be positive", ticker)
	}

	currency := domain.Currency(strings.ToUpper(msg.Currency))
	if currency == "" {
		currency = domain.CurrencyPrimary
	}
	if currency != domain.CurrencyPrimary && currency != domain.CurrencySecondary {
		return returns.Quote{}, status.Errorf(codes.InvalidArgument, "invalid currency %q", msg.Currency)
	}

	return returns.Quote{Ticker: ticker, Price: price, Currency: currency, AsOf: now}, nil
}

func toRatePoints(msgs []RatePointMessage) ([]domain.RatePoint, error) {
	points := make([]domain.RatePoint, 0, len(msgs))
	for i, msg := range msgs {
		date, err := parseTimestamp(msg.Date, fmt.Sprintf("points[%d].date", i))
		if err != nil {
			return nil, err
		}
		value, err := parseAmount(msg.Value, fmt.Sprintf("points[%d].value", i))
		if err != nil {
			return nil, err
		}
		points = append(points, domain.RatePoint{Date: date, Value: value})
	}
	return points, nil
}
