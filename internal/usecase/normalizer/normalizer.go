package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// ErrSkipped marks broker events that are not ledger transactions (pending orders, transfers, unknown instruments)
var ErrSkipped = errors.New("not a ledger transaction")

const (
	stateFulfilled = "FULFILLED"
	percentScale   = 100
)

// optionName matches names such as "GGAL (C) 1234,5" once thousands separators are removed
var optionName = regexp.MustCompile(`^([A-Z0-9]+)\s*\((C|V)\)\s*([\d,]+)`)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	domain.DateLayout,
}

// Normalizer turns raw broker orders into canonical transactions.
// PrimaryCode and SecondaryCode are the ISO codes the export uses for the two currencies.
type Normalizer struct {
	Classifier    *Classifier
	PrimaryCode   string
	SecondaryCode string
}

// NewNormalizer creates a new Normalizer instance
func NewNormalizer(classifier *Classifier, primaryCode, secondaryCode string) *Normalizer {
	return &Normalizer{
		Classifier:    classifier,
		PrimaryCode:   strings.ToUpper(primaryCode),
		SecondaryCode: strings.ToUpper(secondaryCode),
	}
}

// Normalize converts one order
// Logic:
//   - only FULFILLED BUY/SELL orders on a classifiable instrument are ledger transactions (ErrSkipped otherwise)
//   - prices quoted per 100 nominal (priceUnitScale = 100) are divided by 100
//   - secondary-currency listings drop the trailing "D" of the ticker (AAPLD -> AAPL)
//   - the fee is |total - totalGross| and is booked as market fee, in the order currency
//   - option contracts get underlying, right and strike from the instrument name and expiry from maturityDate
func (n *Normalizer) Normalize(order BrokerOrder) (*domain.Transaction, error) {
	operation := domain.Operation(strings.ToUpper(order.OrderOperation))
	if !strings.EqualFold(order.State, stateFulfilled) ||
		(operation != domain.OperationBuy && operation != domain.OperationSell) {
		return nil, fmt.Errorf("order %s (%s %s): %w", order.ID, order.State, order.OrderOperation, ErrSkipped)
	}
	if order.Instrument == nil {
		return nil, fmt.Errorf("order %s has no instrument: %w", order.ID, ErrSkipped)
	}

	category, ok := n.Classifier.Classify(order.Instrument)
	if !ok {
		return nil, fmt.Errorf("order %s: unclassified instrument type %q: %w", order.ID, order.Instrument.Type, ErrSkipped)
	}

	currency, err := n.currency(order.Currency)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", order.ID, err)
	}

	timestamp, err := parseDate(order.OperationDate)
	if err != nil {
		return nil, fmt.Errorf("%w: order %s: %v", domain.ErrMalformedTransaction, order.ID, err)
	}

	ticker := strings.TrimSpace(order.Symbol)
	if ticker == "" {
		ticker = strings.TrimSpace(order.Instrument.Name)
	}
	if currency == domain.CurrencySecondary && len(ticker) > 1 && strings.HasSuffix(strings.ToUpper(ticker), "D") {
		ticker = ticker[:len(ticker)-1]
	}

	price := order.ShareValue
	if order.Instrument.PriceUnitScale == percentScale {
		price = price.Div(decimal.NewFromInt(percentScale))
	}

	tx := &domain.Transaction{
		ID:        string(order.ID),
		Timestamp: timestamp,
		Ticker:    strings.ToUpper(ticker),
		Operation: operation,
		Category:  category,
		Quantity:  order.ExecutedAmount,
		UnitPrice: price,
		Currency:  currency,
		MarketFee: order.Total.Sub(order.TotalGross).Abs(),
		BrokerFee: decimal.Zero,
		Tax:       decimal.Zero,
	}

	if category == domain.CategoryOption {
		details, err := ParseOptionName(order.Instrument.GalloName)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", order.ID, err)
		}
		if order.Instrument.MaturityDate != "" {
			expiration, err := parseDate(order.Instrument.MaturityDate)
			if err != nil {
				return nil, fmt.Errorf("%w: order %s: maturity date: %v", domain.ErrMalformedTransaction, order.ID, err)
			}
			details.ExpirationDate = domain.DayOf(expiration)
		}
		tx.Option = details
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Failure records an order that did not produce a transaction
type Failure struct {
	OrderID string
	Err     error
}

// Batch is the outcome of normalizing a whole export
type Batch struct {
	Transactions []domain.Transaction
	Skipped      []Failure
	Failed       []Failure
}

// NormalizeAll converts every order, separating skipped events from malformed ones
func (n *Normalizer) NormalizeAll(orders []BrokerOrder) Batch {
	batch := Batch{Transactions: make([]domain.Transaction, 0, len(orders))}
	for _, order := range orders {
		tx, err := n.Normalize(order)
		switch {
		case err == nil:
			batch.Transactions = append(batch.Transactions, *tx)
		case errors.Is(err, ErrSkipped):
			batch.Skipped = append(batch.Skipped, Failure{OrderID: string(order.ID), Err: err})
		default:
			batch.Failed = append(batch.Failed, Failure{OrderID: string(order.ID), Err: err})
		}
	}
	return batch
}

// ParseOptionName extracts underlying, right and strike from names like "GGAL (C) 1.234,5".
// Dots are thousands separators and the comma is the decimal mark; "V" (venta) is a put.
func ParseOptionName(name string) (*domain.OptionDetails, error) {
	cleaned := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), ".", "")
	m := optionName.FindStringSubmatch(cleaned)
	if m == nil {
		return nil, fmt.Errorf("%w: cannot parse option name %q", domain.ErrMalformedTransaction, name)
	}

	strike, err := decimal.NewFromString(strings.Replace(m[3], ",", ".", 1))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid strike in option name %q", domain.ErrMalformedTransaction, name)
	}

	right := domain.OptionCall
	if m[2] == "V" {
		right = domain.OptionPut
	}

	return &domain.OptionDetails{
		Underlying:  m[1],
		Right:       right,
		StrikePrice: strike,
	}, nil
}

func (n *Normalizer) currency(code string) (domain.Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case n.PrimaryCode:
		return domain.CurrencyPrimary, nil
	case n.SecondaryCode:
		return domain.CurrencySecondary, nil
	}
	return "", fmt.Errorf("%w: unsupported currency %q", domain.ErrMalformedTransaction, code)
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return domain.WallClock(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
