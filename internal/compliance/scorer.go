// Package compliance provides the Compliance Risk Scorer.
// Additive rule-set scoring over wallet, amount, and region, with an
// injected KYC verification lookup and optional rego policy packs.
package compliance

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bezhas/intelligence/internal/config"
	"github.com/bezhas/intelligence/internal/oracle"
	"github.com/bezhas/intelligence/pkg/confidence"
	"github.com/bezhas/intelligence/pkg/errors"
)

// Status is the compliance verdict.
type Status string

const (
	StatusApproved     Status = "APPROVED"
	StatusPendingKYC   Status = "PENDING_KYC"
	StatusManualReview Status = "MANUAL_REVIEW"
	StatusRejected     Status = "REJECTED"
)

// Action is the enforcement the verdict maps to.
type Action string

const (
	ActionAllow Action = "ALLOW_TX"
	ActionHold  Action = "HOLD_FOR_REVIEW"
	ActionBlock Action = "BLOCK_TX"
)

// Risk flags
const (
	FlagSanctionedRegion     = "SANCTIONED_REGION"
	FlagHighValueTransaction = "HIGH_VALUE_TRANSACTION"
	FlagKYCNotVerified       = "KYC_NOT_VERIFIED"
	FlagPossibleStructuring  = "POSSIBLE_STRUCTURING"
	FlagPolicyViolation      = "POLICY_VIOLATION"
)

// Risk score weights
const (
	scoreSanctioned  = 100
	scoreHighValue   = 30
	scoreKYCMissing  = 40
	scoreStructuring = 20
)

// Verdict thresholds on the uncapped internal score
const (
	criticalScore = 100
	highScore     = 50
	mediumScore   = 20

	// Reported score is capped; the level is not.
	reportedScoreCap = 100
)

// Transaction types accepted by the scorer; anything else defaults
// to transfer.
const (
	TxTransfer    = "transfer"
	TxSwap        = "swap"
	TxMarketplace = "marketplace"
	TxStaking     = "staking"
)

// Request contains the scorer inputs. AmountTokens and
// FiatRegionCode are required; the wallet address is an opaque
// identifier.
type Request struct {
	WalletAddress   string
	AmountTokens    *decimal.Decimal
	FiatRegionCode  string
	TransactionType string
}

// Decision is the scorer's output.
type Decision struct {
	Status          Status
	KYCRequired     bool
	KYCVerified     bool
	RiskScore       int
	RiskLevel       string
	Flags           []string
	AutomaticAction Action
	TotalValueUSD   decimal.Decimal
	TransactionType string
	Reasoning       string
	Confidence      float64
	SnapshotID      uuid.UUID
	ErrorReason     string
}

// Scorer is the compliance decision engine.
type Scorer struct {
	cfg      *config.FeeConfiguration
	kyc      KYCStore
	policies *PolicyPack
}

// NewScorer creates a compliance scorer. A nil KYC store treats every
// wallet as unverified.
func NewScorer(cfg *config.FeeConfiguration, kyc KYCStore) *Scorer {
	return &Scorer{cfg: cfg, kyc: kyc}
}

// WithPolicyPack attaches rego policy evaluation.
func (s *Scorer) WithPolicyPack(pack *PolicyPack) *Scorer {
	s.policies = pack
	return s
}

// Assess scores a transaction and decides approve, hold, or block.
func (s *Scorer) Assess(ctx context.Context, snap *oracle.NetworkSnapshot, req Request) (*Decision, error) {
	if req.AmountTokens == nil {
		return nil, errors.NewInvalidInputError("amount_tokens", "amount_tokens is required")
	}
	if strings.TrimSpace(req.FiatRegionCode) == "" {
		return nil, errors.NewInvalidInputError("fiat_region_code", "fiat_region_code is required")
	}
	amount := *req.AmountTokens
	if amount.IsNegative() {
		return nil, errors.NewInvalidInputError("amount_tokens", "amount_tokens must be non-negative")
	}

	txType := strings.ToLower(req.TransactionType)
	switch txType {
	case TxSwap, TxMarketplace, TxStaking:
	default:
		txType = TxTransfer
	}

	totalValueUSD := amount.Mul(snap.TokenPriceUSD)

	flags := make([]string, 0, 4)
	score := 0

	if s.cfg.IsSanctioned(req.FiatRegionCode) {
		flags = append(flags, FlagSanctionedRegion)
		score += scoreSanctioned
	}

	// Strict >: a value exactly at the threshold does not require KYC.
	kycRequired := totalValueUSD.GreaterThan(s.cfg.HighValueThresholdUSD)
	if kycRequired {
		flags = append(flags, FlagHighValueTransaction)
		score += scoreHighValue
	}

	kycVerified := s.kycVerified(ctx, req.WalletAddress)
	if kycRequired && !kycVerified {
		flags = append(flags, FlagKYCNotVerified)
		score += scoreKYCMissing
	}

	// Half-open band (low, threshold]: just under the reporting line.
	if totalValueUSD.GreaterThan(s.cfg.StructuringBandLowUSD) &&
		totalValueUSD.LessThanOrEqual(s.cfg.HighValueThresholdUSD) {
		flags = append(flags, FlagPossibleStructuring)
		score += scoreStructuring
	}

	decision := s.verdict(score, kycRequired, kycVerified, flags, totalValueUSD)
	decision.KYCRequired = kycRequired
	decision.KYCVerified = kycVerified
	decision.TransactionType = txType
	decision.TotalValueUSD = totalValueUSD.Round(2)
	decision.Confidence = confidence.ForSources(snap.LivePrice)
	decision.SnapshotID = snap.ID

	if s.policies != nil {
		s.applyPolicies(ctx, decision, score, req)
	}

	return decision, nil
}

// verdict derives level, status, and action from the uncapped score.
// The reported score is capped at 100; the level comparisons are not,
// so a 170-point accumulation still reads CRITICAL.
func (s *Scorer) verdict(score int, kycRequired, kycVerified bool, flags []string, totalValueUSD decimal.Decimal) *Decision {
	var riskLevel string
	switch {
	case score >= criticalScore:
		riskLevel = "CRITICAL"
	case score >= highScore:
		riskLevel = "HIGH"
	case score >= mediumScore:
		riskLevel = "MEDIUM"
	default:
		riskLevel = "LOW"
	}

	d := &Decision{
		RiskScore: score,
		RiskLevel: riskLevel,
		Flags:     flags,
	}
	if d.RiskScore > reportedScoreCap {
		d.RiskScore = reportedScoreCap
	}

	switch {
	case score >= criticalScore:
		d.Status = StatusRejected
		d.AutomaticAction = ActionBlock
		d.Reasoning = fmt.Sprintf("Blocked: %s.", strings.Join(flags, ", "))
	case kycRequired && !kycVerified:
		d.Status = StatusPendingKYC
		d.AutomaticAction = ActionHold
		d.Reasoning = fmt.Sprintf("High-value ($%s) requires KYC.", totalValueUSD.StringFixed(2))
	case score >= highScore:
		d.Status = StatusManualReview
		d.AutomaticAction = ActionHold
		d.Reasoning = fmt.Sprintf("Multiple risk flags: %s.", strings.Join(flags, ", "))
	default:
		d.Status = StatusApproved
		d.AutomaticAction = ActionAllow
		d.Reasoning = fmt.Sprintf("Approved. Risk: %s. Value: $%s.", riskLevel, totalValueUSD.StringFixed(2))
	}
	return d
}

func (s *Scorer) kycVerified(ctx context.Context, wallet string) bool {
	if s.kyc == nil || wallet == "" {
		return false
	}
	verified, err := s.kyc.Verified(ctx, wallet)
	if err != nil {
		// Lookup unavailable: treat as unverified, never as verified.
		return false
	}
	return verified
}

// applyPolicies runs the rego pack; denials only escalate the
// verdict, never downgrade it.
func (s *Scorer) applyPolicies(ctx context.Context, d *Decision, internalScore int, req Request) {
	result := s.policies.Evaluate(ctx, PolicyInput{
		WalletAddress: req.WalletAddress,
		Region:        strings.ToUpper(req.FiatRegionCode),
		TotalValueUSD: d.TotalValueUSD.InexactFloat64(),
		RiskScore:     internalScore,
		RiskLevel:     d.RiskLevel,
		Flags:         d.Flags,
		KYCRequired:   d.KYCRequired,
		KYCVerified:   d.KYCVerified,
	})

	if len(result.Denials) > 0 {
		d.Status = StatusRejected
		d.AutomaticAction = ActionBlock
		d.Flags = append(d.Flags, FlagPolicyViolation)
		d.Reasoning = fmt.Sprintf("%s Policy: %s", d.Reasoning, strings.Join(result.Denials, "; "))
	}
	if len(result.Warnings) > 0 {
		d.Reasoning = fmt.Sprintf("%s Warnings: %s", d.Reasoning, strings.Join(result.Warnings, "; "))
	}
}

// Degraded builds the conservative decision returned when the price
// oracle is unreachable: a transaction we cannot value is blocked.
func (s *Scorer) Degraded(cause error) *Decision {
	return &Decision{
		Status:          StatusRejected,
		AutomaticAction: ActionBlock,
		RiskLevel:       "CRITICAL",
		Reasoning:       "Oracle error: transaction value could not be established.",
		Confidence:      0,
		ErrorReason:     cause.Error(),
	}
}
