// Package gas provides the Gas Strategy Advisor.
// Decides whether a transaction should execute now, wait, or be
// batched, and who pays the network fee.
package gas

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bezhas/intelligence/internal/config"
	"github.com/bezhas/intelligence/internal/oracle"
	"github.com/bezhas/intelligence/pkg/confidence"
	"github.com/bezhas/intelligence/pkg/errors"
	"github.com/bezhas/intelligence/pkg/units"
)

// Action is the advisor's verdict.
type Action string

const (
	ActionExecute Action = "EXECUTE"
	ActionDelay   Action = "DELAY"
	ActionBatch   Action = "BATCH"
)

// Payer designates who covers the network fee.
type Payer string

const (
	UserPays    Payer = "USER_PAYS"
	RelayerPays Payer = "RELAYER_PAYS"
)

// Urgency biases the advisor toward immediate execution.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ParseUrgency tolerates any input; unrecognized values default to medium.
func ParseUrgency(s string) Urgency {
	switch Urgency(strings.ToLower(s)) {
	case UrgencyLow:
		return UrgencyLow
	case UrgencyHigh:
		return UrgencyHigh
	default:
		return UrgencyMedium
	}
}

// Request contains the advisor inputs. EstimatedValueUSD is required;
// everything else is tolerated with defaults.
type Request struct {
	Category          string
	EstimatedValueUSD *decimal.Decimal
	Urgency           Urgency
}

// Decision is the advisor's output, produced fresh per call.
type Decision struct {
	Action                  Action
	Payer                   Payer
	CurrentGasGwei          decimal.Decimal
	MaxPriorityFeeGwei      decimal.Decimal
	NetworkCostUSD          decimal.Decimal
	ProjectedPlatformProfit decimal.Decimal
	IsProfitable            bool
	EstimatedGasUnits       int64
	FeeBurnAmount           decimal.Decimal
	Reasoning               string
	Confidence              float64
	SnapshotID              uuid.UUID
	ErrorReason             string
}

// Advisor is the Gas Strategy decision engine. Pure once given a
// snapshot; safe for concurrent use.
type Advisor struct {
	cfg     *config.FeeConfiguration
	profile *config.TransactionGasProfile
}

// NewAdvisor creates a gas strategy advisor.
func NewAdvisor(cfg *config.FeeConfiguration, profile *config.TransactionGasProfile) *Advisor {
	return &Advisor{cfg: cfg, profile: profile}
}

// Advise computes the execution strategy for a transaction against
// the given network snapshot.
func (a *Advisor) Advise(snap *oracle.NetworkSnapshot, req Request) (*Decision, error) {
	if req.EstimatedValueUSD == nil {
		return nil, errors.NewInvalidInputError("estimated_value_usd", "estimated_value_usd is required")
	}
	value := *req.EstimatedValueUSD
	if value.IsNegative() {
		value = decimal.Zero
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = UrgencyMedium
	}

	gasUnits, _ := a.profile.Estimate(req.Category)
	networkCostUSD := units.GasCostUSD(snap.GasPriceWei, gasUnits, snap.NativePriceUSD)
	platformFeeUSD := units.Percent(value, a.cfg.PlatformFeePercent)
	feeBurnUSD := units.Percent(platformFeeUSD, a.cfg.FeeBurnPercent)
	isProfitable := platformFeeUSD.GreaterThan(networkCostUSD)
	gasPriceGwei := snap.GasPriceGwei()

	action := ActionExecute
	payer := UserPays
	if req.Category == config.CategoryDataIngest {
		payer = RelayerPays
	}

	var reasoning []string
	if gasPriceGwei.GreaterThan(a.cfg.GasHighThresholdGwei) && value.LessThan(a.cfg.LowValueThresholdUSD) {
		if urgency == UrgencyHigh {
			action = ActionExecute
			reasoning = append(reasoning, "High gas but urgent.")
		} else {
			action = ActionDelay
			reasoning = append(reasoning, "Gas too high for low-value tx.")
		}
	}
	if !isProfitable && urgency != UrgencyHigh {
		action = ActionDelay
		reasoning = append(reasoning, "Not profitable for platform.")
	}
	if req.Category == config.CategoryDataIngest && value.LessThan(a.cfg.BatchThresholdUSD) {
		action = ActionBatch
		reasoning = append(reasoning, "Small data-ingest: batch recommended.")
	}
	if len(reasoning) == 0 {
		reasoning = append(reasoning, "Gas optimal. Execute now.")
	}

	return &Decision{
		Action:                  action,
		Payer:                   payer,
		CurrentGasGwei:          gasPriceGwei,
		MaxPriorityFeeGwei:      snap.PriorityFeeGwei(),
		NetworkCostUSD:          networkCostUSD.Round(6),
		ProjectedPlatformProfit: platformFeeUSD.Round(6),
		IsProfitable:            isProfitable,
		EstimatedGasUnits:       gasUnits,
		FeeBurnAmount:           feeBurnUSD.Round(6),
		Reasoning:               strings.Join(reasoning, " "),
		Confidence:              confidence.ForSources(snap.LiveGas, snap.LivePrice),
		SnapshotID:              snap.ID,
	}, nil
}

// Degraded builds the conservative decision returned when the fee
// oracle is unreachable. Advisory semantics: refusing to answer is
// worse than answering conservatively.
func (a *Advisor) Degraded(req Request, cause error) *Decision {
	payer := UserPays
	if req.Category == config.CategoryDataIngest {
		payer = RelayerPays
	}
	gasUnits, _ := a.profile.Estimate(req.Category)
	return &Decision{
		Action:            ActionDelay,
		Payer:             payer,
		EstimatedGasUnits: gasUnits,
		Reasoning:         "RPC error: network fee data unavailable, deferring execution.",
		Confidence:        0,
		ErrorReason:       cause.Error(),
	}
}
