package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderID is a broker order identifier; exports carry it either as a JSON number or a string
type OrderID string

// UnmarshalJSON accepts both 123 and "123"
func (id *OrderID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = OrderID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("order id must be a number or a string: %w", err)
	}
	*id = OrderID(n.String())
	return nil
}

// Instrument describes what a broker order traded
type Instrument struct {
	Type                    string `json:"type"`
	InstrumentOperationType string `json:"instrumentOperationType"`
	Name                    string `json:"name"`
	PriceUnitScale          int    `json:"priceUnitScale"`
	GalloName               string `json:"galloName"`
	MaturityDate            string `json:"maturityDate"`
}

// BrokerOrder is one raw order from a broker export
type BrokerOrder struct {
	ID             OrderID         `json:"id"`
	State          string          `json:"state"`
	OrderOperation string          `json:"orderOperation"`
	Symbol         string          `json:"symbol"`
	Currency       string          `json:"currency"`
	ExecutedAmount decimal.Decimal `json:"executedAmount"`
	ShareValue     decimal.Decimal `json:"shareValue"`
	Total          decimal.Decimal `json:"total"`
	TotalGross     decimal.Decimal `json:"totalGross"`
	OperationDate  string          `json:"operationDate"`
	Instrument     *Instrument     `json:"instrument"`
}
