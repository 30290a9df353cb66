package grpc

import "github.com/simaogato/realfolio-backend/internal/usecase/normalizer"

// Amounts travel as decimal strings. Dates are YYYY-MM-DD; timestamps accept RFC3339 or a bare date.

// OptionMessage carries option contract terms
type OptionMessage struct {
	Underlying     string `json:"underlying"`
	Right          string `json:"right"`
	StrikePrice    string `json:"strike_price"`
	ExpirationDate string `json:"expiration_date"`
}

// TransactionMessage is a normalized buy or sell
type TransactionMessage struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Ticker    string         `json:"ticker"`
	Operation string         `json:"operation"`
	Category  string         `json:"category"`
	Quantity  string         `json:"quantity"`
	UnitPrice string         `json:"unit_price"`
	Currency  string         `json:"currency"`
	MarketFee string         `json:"market_fee,omitempty"`
	BrokerFee string         `json:"broker_fee,omitempty"`
	Tax       string         `json:"tax,omitempty"`
	Option    *OptionMessage `json:"option,omitempty"`
}

// ClosedTradeMessage is one realized FIFO match or option expiration
type ClosedTradeMessage struct {
	ID                string `json:"id"`
	Ticker            string `json:"ticker"`
	Category          string `json:"category"`
	Quantity          string `json:"quantity"`
	BuyDate           string `json:"buy_date"`
	SellDate          string `json:"sell_date"`
	CostPrimary       string `json:"cost_primary"`
	CostSecondary     string `json:"cost_secondary"`
	RevenuePrimary    string `json:"revenue_primary"`
	RevenueSecondary  string `json:"revenue_secondary"`
	BuyTransactionID  string `json:"buy_transaction_id"`
	SellTransactionID string `json:"sell_transaction_id,omitempty"`
	Expired           bool   `json:"expired"`
}

// RejectionMessage explains why a transaction was not applied
type RejectionMessage struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
	Message       string `json:"message"`
	Retryable     bool   `json:"retryable"`
}

// ApplyTransactionsRequest submits normalized transactions
type ApplyTransactionsRequest struct {
	Transactions []TransactionMessage `json:"transactions"`
}

// ReconcileResponse reports the outcome of a reconciliation run
type ReconcileResponse struct {
	Applied      []string             `json:"applied"`
	Skipped      []string             `json:"skipped"`
	Rejected     []RejectionMessage   `json:"rejected"`
	ClosedTrades []ClosedTradeMessage `json:"closed_trades"`
	OpenLots     int                  `json:"open_lots"`
}

// SubmitBrokerOrdersRequest submits raw broker export orders
type SubmitBrokerOrdersRequest struct {
	Orders []normalizer.BrokerOrder `json:"orders"`
}

// OrderFailureMessage is an order that did not become a transaction
type OrderFailureMessage struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}

// SubmitBrokerOrdersResponse reports normalization and reconciliation
type SubmitBrokerOrdersResponse struct {
	Reconcile     ReconcileResponse     `json:"reconcile"`
	SkippedOrders []OrderFailureMessage `json:"skipped_orders"`
	FailedOrders  []OrderFailureMessage `json:"failed_orders"`
}

// ExpireOptionsRequest triggers the expiration sweep; Today defaults to the server date
type ExpireOptionsRequest struct {
	Today string `json:"today,omitempty"`
}

// ExpireOptionsResponse lists the lots closed by expiration
type ExpireOptionsResponse struct {
	Expired []ClosedTradeMessage `json:"expired"`
}

// RetryPendingRequest re-applies rate-starved transactions
type RetryPendingRequest struct{}

// RatePointMessage is one observation
type RatePointMessage struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

// UpsertRatePointsRequest stores observations; when Kind is set the series is registered first
type UpsertRatePointsRequest struct {
	Series string             `json:"series"`
	Kind   string             `json:"kind,omitempty"`
	Points []RatePointMessage `json:"points"`
}

// UpsertRatePointsResponse reports how many distinct days were stored
type UpsertRatePointsResponse struct {
	Series string `json:"series"`
	Stored int    `json:"stored"`
}

// QuoteMessage is a current market price
type QuoteMessage struct {
	Ticker   string `json:"ticker"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// PublishPricesRequest updates the price board
type PublishPricesRequest struct {
	Quotes []QuoteMessage `json:"quotes"`
}

// PublishPricesResponse reports the accepted quotes
type PublishPricesResponse struct {
	Accepted int `json:"accepted"`
}

// GetOpenPositionsRequest asks for the mark-to-market report
type GetOpenPositionsRequest struct{}

// OpenLotMessage is one open lot marked to market; missing values are empty strings
type OpenLotMessage struct {
	LotID                string         `json:"lot_id"`
	Ticker               string         `json:"ticker"`
	Category             string         `json:"category"`
	OpenDate             string         `json:"open_date"`
	Quantity             string         `json:"quantity"`
	CostPrimary          string         `json:"cost_primary"`
	CostSecondary        string         `json:"cost_secondary"`
	Price                string         `json:"price"`
	PriceCurrency        string         `json:"price_currency"`
	MarketValuePrimary   string         `json:"market_value_primary"`
	MarketValueSecondary string         `json:"market_value_secondary"`
	NominalPrimaryPct    string         `json:"nominal_primary_pct"`
	NominalSecondaryPct  string         `json:"nominal_secondary_pct"`
	RealPrimaryPct       string         `json:"real_primary_pct"`
	RealSecondaryPct     string         `json:"real_secondary_pct"`
	AgeDays              int            `json:"age_days"`
	Option               *OptionMessage `json:"option,omitempty"`
}

// PositionMessage is the consolidated view of one ticker
type PositionMessage struct {
	Ticker               string `json:"ticker"`
	Category             string `json:"category"`
	Lots                 int    `json:"lots"`
	Quantity             string `json:"quantity"`
	CostPrimary          string `json:"cost_primary"`
	CostSecondary        string `json:"cost_secondary"`
	MarketValuePrimary   string `json:"market_value_primary"`
	MarketValueSecondary string `json:"market_value_secondary"`
	NominalPrimaryPct    string `json:"nominal_primary_pct"`
	NominalSecondaryPct  string `json:"nominal_secondary_pct"`
	RealPrimaryPct       string `json:"real_primary_pct"`
	RealSecondaryPct     string `json:"real_secondary_pct"`
	FirstBuyDate         string `json:"first_buy_date"`
	AgeDays              int    `json:"age_days"`
}

// GetOpenPositionsResponse is the open positions report
type GetOpenPositionsResponse struct {
	AsOf              string            `json:"as_of"`
	PrimaryCurrency   string            `json:"primary_currency"`
	SecondaryCurrency string            `json:"secondary_currency"`
	Positions         []PositionMessage `json:"positions"`
	Lots              []OpenLotMessage  `json:"lots"`
	Options           []OpenLotMessage  `json:"options"`
	Excluded          []string          `json:"excluded"`
}

// GetClosedTradesRequest asks for the realized returns report
type GetClosedTradesRequest struct{}

// ClosedTradeReportMessage is a closed trade with its returns
type ClosedTradeReportMessage struct {
	Trade               ClosedTradeMessage `json:"trade"`
	NominalPrimaryPct   string             `json:"nominal_primary_pct"`
	NominalSecondaryPct string             `json:"nominal_secondary_pct"`
	RealPrimaryPct      string             `json:"real_primary_pct"`
	RealSecondaryPct    string             `json:"real_secondary_pct"`
}

// ClosedSummaryMessage aggregates the closed trades of one ticker
type ClosedSummaryMessage struct {
	Ticker              string `json:"ticker"`
	Trades              int    `json:"trades"`
	Quantity            string `json:"quantity"`
	CostPrimary         string `json:"cost_primary"`
	CostSecondary       string `json:"cost_secondary"`
	RevenuePrimary      string `json:"revenue_primary"`
	RevenueSecondary    string `json:"revenue_secondary"`
	NominalPrimaryPct   string `json:"nominal_primary_pct"`
	NominalSecondaryPct string `json:"nominal_secondary_pct"`
	RealPrimaryPct      string `json:"real_primary_pct"`
	RealSecondaryPct    string `json:"real_secondary_pct"`
	FirstBuyDate        string `json:"first_buy_date"`
	LastSellDate        string `json:"last_sell_date"`
}

// GetClosedTradesResponse is the realized returns report
type GetClosedTradesResponse struct {
	PrimaryCurrency   string                     `json:"primary_currency"`
	SecondaryCurrency string                     `json:"secondary_currency"`
	Trades            []ClosedTradeReportMessage `json:"trades"`
	ByTicker          []ClosedSummaryMessage     `json:"by_ticker"`
}
