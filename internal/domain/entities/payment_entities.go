package entities

import (
	"github.com/shopspring/decimal"
)

// PaymentIntentMetadata is the processor-side view of a single charge,
// fetched per transaction id and memoized in-process. Never persisted.
type PaymentIntentMetadata struct {
	TransactionID      string          `json:"transaction_id"`
	OriginalCurrency   string          `json:"original_currency"`
	IsInstantTransfer  bool            `json:"is_instant_transfer"`
	ExchangeRate       decimal.Decimal `json:"exchange_rate"`
	NetReferenceAmount decimal.Decimal `json:"net_reference_amount"`
	RailSubtypes       []string        `json:"rail_subtypes"`
}

// ReferenceCurrency is the single currency every resolved amount is
// expressed in.
const ReferenceCurrency = "USD"
