package processor

import "github.com/shopspring/decimal"

// paymentIntentResponse is the processor's wire format for a single
// charge's metadata.
type paymentIntentResponse struct {
	ID               string   `json:"id"`
	Currency         string   `json:"currency"`
	PaymentMethods   []string `json:"payment_method_types"`
	ExchangeRate     *float64 `json:"exchange_rate,omitempty"`
	NetAmount        *int64   `json:"net_amount,omitempty"` // cents
	LatestChargeID   string   `json:"latest_charge,omitempty"`
	Status           string   `json:"status"`
}

// instantRailSubtypes are the payment method types billed under the
// flat instant-transfer fee structure rather than percentage+fixed.
var instantRailSubtypes = map[string]bool{
	"pix":              true,
	"instant_transfer": true,
	"bank_transfer":    true,
}

func isInstantRail(methods []string) bool {
	for _, m := range methods {
		if instantRailSubtypes[m] {
			return true
		}
	}
	return false
}

func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}
