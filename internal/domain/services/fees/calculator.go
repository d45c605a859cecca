package fees

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/referral-service/referral_service/internal/infrastructure/config"
	"github.com/referral-service/referral_service/pkg/metrics"
)

// StrippingPolicy gates processor-fee removal on the instant
// processor-side fee transparency became available. Charges dated
// before the cutover keep their gross amount: no reliable metadata
// exists to strip them correctly.
type StrippingPolicy struct {
	Cutover time.Time
}

// AppliesTo reports whether fee-stripping applies to a charge date
func (p StrippingPolicy) AppliesTo(paidAt time.Time) bool {
	return !paidAt.Before(p.Cutover)
}

// Calculator converts gross charged amounts into net reference-currency
// amounts. Pure and stateless apart from anomaly counters.
type Calculator struct {
	instantFeePct decimal.Decimal
	cardFeePct    decimal.Decimal
	cardFixedFee  decimal.Decimal
	policy        StrippingPolicy
	logger        *zap.Logger
}

// NewCalculator builds a calculator from the fee policy configuration
func NewCalculator(cfg config.FeesConfig, logger *zap.Logger) (*Calculator, error) {
	cutover, err := cfg.CutoverTime()
	if err != nil {
		return nil, err
	}

	return &Calculator{
		instantFeePct: decimal.NewFromFloat(cfg.InstantRailFeePct),
		cardFeePct:    decimal.NewFromFloat(cfg.CardRailFeePct),
		cardFixedFee:  decimal.NewFromFloat(cfg.CardRailFixedFee),
		policy:        StrippingPolicy{Cutover: cutover},
		logger:        logger,
	}, nil
}

// NetFromGross strips the processor's transaction fee from a gross
// reference-currency amount. Instant-transfer rails carry a flat
// percentage; card-like rails carry percentage plus a fixed fee,
// floored at zero.
func (c *Calculator) NetFromGross(gross decimal.Decimal, isInstantRail bool) decimal.Decimal {
	one := decimal.NewFromInt(1)

	if isInstantRail {
		return round2(gross.Mul(one.Sub(c.instantFeePct)))
	}

	net := gross.Mul(one.Sub(c.cardFeePct)).Sub(c.cardFixedFee)
	return clampZero(round2(net))
}

// Convert translates an original-currency amount into the reference
// currency at a point-in-time exchange rate. A non-positive rate is an
// upstream anomaly: the amount is returned unconverted rather than
// divided by zero or negated.
func (c *Calculator) Convert(amount, exchangeRate decimal.Decimal) decimal.Decimal {
	if exchangeRate.LessThanOrEqual(decimal.Zero) {
		metrics.ResolutionAnomalies.WithLabelValues("non_positive_exchange_rate").Inc()
		c.logger.Warn("Non-positive exchange rate, returning amount unconverted",
			zap.String("amount", amount.String()),
			zap.String("rate", exchangeRate.String()))
		return amount
	}
	return round2(amount.Div(exchangeRate))
}

// SettledAmount applies the date-gated stripping contract to a gross
// reference-currency amount: before the cutover the gross passes
// through; on or after it the rail's fee model is stripped.
func (c *Calculator) SettledAmount(grossUSD decimal.Decimal, isInstantRail bool, paidAt time.Time) decimal.Decimal {
	if !c.policy.AppliesTo(paidAt) {
		return clampZero(round2(grossUSD))
	}
	return c.NetFromGross(grossUSD, isInstantRail)
}

// round2 rounds to cents, half up. Every derived computation rounds.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
