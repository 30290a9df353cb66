// Package payload encodes ledger values stored as opaque blobs, such as the
// transaction carried by a pending retry task.
package payload

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/simaogato/realfolio-backend/internal/domain"
)

// version is bumped whenever the record layout changes incompatibly
const version = 1

type optionRecord struct {
	Underlying     string    `msgpack:"u"`
	Right          string    `msgpack:"r"`
	StrikePrice    string    `msgpack:"k"`
	ExpirationDate time.Time `msgpack:"e"`
}

type transactionRecord struct {
	Version   int           `msgpack:"v"`
	ID        string        `msgpack:"id"`
	Timestamp time.Time     `msgpack:"ts"`
	Ticker    string        `msgpack:"tk"`
	Operation string        `msgpack:"op"`
	Category  string        `msgpack:"cat"`
	Quantity  string        `msgpack:"q"`
	UnitPrice string        `msgpack:"px"`
	Currency  string        `msgpack:"ccy"`
	MarketFee string        `msgpack:"mf"`
	BrokerFee string        `msgpack:"bf"`
	Tax       string        `msgpack:"tax"`
	Option    *optionRecord `msgpack:"opt,omitempty"`
}

// EncodeTransaction serializes a transaction; decimals travel as strings so no precision is lost
func EncodeTransaction(tx domain.Transaction) ([]byte, error) {
	rec := transactionRecord{
		Version:   version,
		ID:        tx.ID,
		Timestamp: tx.Timestamp.UTC(),
		Ticker:    tx.Ticker,
		Operation: string(tx.Operation),
		Category:  string(tx.Category),
		Quantity:  tx.Quantity.String(),
		UnitPrice: tx.UnitPrice.String(),
		Currency:  string(tx.Currency),
		MarketFee: tx.MarketFee.String(),
		BrokerFee: tx.BrokerFee.String(),
		Tax:       tx.Tax.String(),
	}
	if tx.Option != nil {
		rec.Option = &optionRecord{
			Underlying:     tx.Option.Underlying,
			Right:          string(tx.Option.Right),
			StrikePrice:    tx.Option.StrikePrice.String(),
			ExpirationDate: tx.Option.ExpirationDate.UTC(),
		}
	}

	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction %s: %w", tx.ID, err)
	}
	return data, nil
}

// DecodeTransaction is the inverse of EncodeTransaction
func DecodeTransaction(data []byte) (domain.Transaction, error) {
	var rec transactionRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return domain.Transaction{}, fmt.Errorf("failed to decode transaction payload: %w", err)
	}
	if rec.Version != version {
		return domain.Transaction{}, fmt.Errorf("unsupported transaction payload version %d", rec.Version)
	}

	amounts := make([]decimal.Decimal, 5)
	for i, s := range []string{rec.Quantity, rec.UnitPrice, rec.MarketFee, rec.BrokerFee, rec.Tax} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("failed to parse amount in payload of %s: %w", rec.ID, err)
		}
		amounts[i] = d
	}

	tx := domain.Transaction{
		ID:        rec.ID,
		Timestamp: rec.Timestamp.UTC(),
		Ticker:    rec.Ticker,
		Operation: domain.Operation(rec.Operation),
		Category:  domain.AssetCategory(rec.Category),
		Quantity:  amounts[0],
		UnitPrice: amounts[1],
		Currency:  domain.Currency(rec.Currency),
		MarketFee: amounts[2],
		BrokerFee: amounts[3],
		Tax:       amounts[4],
	}

	if rec.Option != nil {
		strike, err := decimal.NewFromString(rec.Option.StrikePrice)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("failed to parse strike in payload of %s: %w", rec.ID, err)
		}
		tx.Option = &domain.OptionDetails{
			Underlying:     rec.Option.Underlying,
			Right:          domain.OptionRight(rec.Option.Right),
			StrikePrice:    strike,
			ExpirationDate: rec.Option.ExpirationDate.UTC(),
		}
	}

	return tx, nil
}
