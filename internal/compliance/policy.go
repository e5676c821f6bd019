package compliance

import (
	"context"
	"os"
	"path/filepath"

	"github.com/open-policy-agent/opa/rego"
)

// PolicyInput is the document handed to rego policies.
type PolicyInput struct {
	WalletAddress string   `json:"wallet_address"`
	Region        string   `json:"region"`
	TotalValueUSD float64  `json:"total_value_usd"`
	RiskScore     int      `json:"risk_score"`
	RiskLevel     string   `json:"risk_level"`
	Flags         []string `json:"flags"`
	KYCRequired   bool     `json:"kyc_required"`
	KYCVerified   bool     `json:"kyc_verified"`
}

// PolicyResult holds rego evaluation outcomes.
type PolicyResult struct {
	Denials  []string
	Warnings []string
}

// PolicyPack evaluates *.rego files from a directory against scorer
// results. Policies publish deny/warn string sets under data.bezhas.
type PolicyPack struct {
	dir string
}

// NewPolicyPack creates a pack over a policy directory.
func NewPolicyPack(dir string) *PolicyPack {
	return &PolicyPack{dir: dir}
}

// Evaluate runs every policy file. Unreadable or broken policies are
// skipped; compliance never fails open or closed on a bad file.
func (p *PolicyPack) Evaluate(ctx context.Context, input PolicyInput) PolicyResult {
	result := PolicyResult{}

	files, err := filepath.Glob(filepath.Join(p.dir, "*.rego"))
	if err != nil || len(files) == 0 {
		return result
	}

	for _, file := range files {
		policy, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		if denials, err := p.evalQuery(ctx, string(policy), "data.bezhas.deny", input); err == nil {
			result.Denials = append(result.Denials, denials...)
		}
		if warnings, err := p.evalQuery(ctx, string(policy), "data.bezhas.warn", input); err == nil {
			result.Warnings = append(result.Warnings, warnings...)
		}
	}

	return result
}

func (p *PolicyPack) evalQuery(ctx context.Context, policy, query string, input PolicyInput) ([]string, error) {
	r := rego.New(
		rego.Query(query),
		rego.Module("policy.rego", policy),
		rego.Input(input),
	)

	rs, err := r.Eval(ctx)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, result := range rs {
		for _, expr := range result.Expressions {
			values, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, v := range values {
				if s, ok := v.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out, nil
}
