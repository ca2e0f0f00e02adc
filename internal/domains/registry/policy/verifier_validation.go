package policy

import (
	"fmt"
	"strings"

	"asset-classify/go-engine/internal/domains/contracts"
	"asset-classify/go-engine/internal/domains/registry/model"
)

// ValidateVerifier checks that a verifier configuration is internally
// consistent. Every violation is collected so the caller can fix the whole
// configuration in one round trip; nothing short-circuits. An empty
// allowedDenoms list leaves the denom unrestricted.
func ValidateVerifier(v model.VerifierDetail, allowedDenoms []string, validateAddress func(string) error) error {
	return contracts.NewInvalidConfiguration("verifier", verifierProblems(v, allowedDenoms, validateAddress))
}

// ValidateDefinition validates a whole asset definition, including every
// verifier it carries.
func ValidateDefinition(def model.AssetDefinition, allowedDenoms []string, validateAddress func(string) error) error {
	var problems []string
	if strings.TrimSpace(def.AssetType) == "" {
		problems = append(problems, "asset_type: must not be blank")
	}
	if len(def.Verifiers) == 0 {
		problems = append(problems, "verifiers: at least one verifier must be supplied per asset type")
	}
	seen := make(map[string]struct{}, len(def.Verifiers))
	for _, v := range def.Verifiers {
		if _, dup := seen[v.Address]; dup {
			problems = append(problems, fmt.Sprintf("verifiers: duplicate verifier address %q", v.Address))
		}
		seen[v.Address] = struct{}{}
		problems = append(problems, verifierProblems(v, allowedDenoms, validateAddress)...)
	}
	return contracts.NewInvalidConfiguration("asset definition", problems)
}

func verifierProblems(v model.VerifierDetail, allowedDenoms []string, validateAddress func(string) error) []string {
	var problems []string
	problems = append(problems, addressProblems("verifier:address", v.Address, validateAddress)...)
	if strings.TrimSpace(v.OnboardingDenom) == "" {
		problems = append(problems, "verifier:onboarding_denom: must not be blank")
	} else if len(allowedDenoms) > 0 && !containsString(allowedDenoms, v.OnboardingDenom) {
		problems = append(problems, fmt.Sprintf(
			"verifier:onboarding_denom: denom %q is not in the allowed denoms [%s]",
			v.OnboardingDenom, strings.Join(allowedDenoms, ", "),
		))
	}
	problems = append(problems, costProblems("verifier", v.RootCost(), validateAddress)...)
	if v.RetryCost != nil {
		problems = append(problems, costProblems("verifier:retry_cost", *v.RetryCost, validateAddress)...)
	}
	if sub := v.SubsequentClassificationDetail; sub != nil {
		problems = append(problems, costProblems("verifier:subsequent_classification_detail", sub.Cost, validateAddress)...)
		if sub.ApplicableAssetTypes != nil && len(sub.ApplicableAssetTypes) == 0 {
			problems = append(problems, "verifier:subsequent_classification_detail:applicable_asset_types: must not be empty when provided")
		}
		for _, assetType := range sub.ApplicableAssetTypes {
			if strings.TrimSpace(assetType) == "" {
				problems = append(problems, "verifier:subsequent_classification_detail:applicable_asset_types: entries must not be blank")
			}
		}
	}
	return problems
}

// costProblems applies the shared cost/destination invariants: unique
// destination addresses and a fee total that never exceeds the cost. The
// remainder of cost minus the fee total is implicitly owed to the verifier.
func costProblems(prefix string, cost model.OnboardingCost, validateAddress func(string) error) []string {
	var problems []string
	seen := make(map[string]struct{}, len(cost.FeeDestinations))
	for _, dest := range cost.FeeDestinations {
		if _, dup := seen[dest.Address]; dup {
			problems = append(problems, fmt.Sprintf("%s:fee_destinations: duplicate destination address %q", prefix, dest.Address))
		}
		seen[dest.Address] = struct{}{}
		problems = append(problems, addressProblems(prefix+":fee_destinations:address", dest.Address, validateAddress)...)
	}
	if total, ok := cost.FeeTotal(); !ok {
		problems = append(problems, fmt.Sprintf(
			"%s:fee_destinations: fee total overflows uint64",
			prefix,
		))
	} else if total > cost.Cost {
		problems = append(problems, fmt.Sprintf(
			"%s:fee_destinations: fee total (%d) exceeds the onboarding cost (%d)",
			prefix, total, cost.Cost,
		))
	}
	return problems
}

func addressProblems(field, address string, validateAddress func(string) error) []string {
	if strings.TrimSpace(address) == "" {
		return []string{field + ": must not be blank"}
	}
	if validateAddress != nil {
		if err := validateAddress(address); err != nil {
			return []string{fmt.Sprintf("%s: %v", field, err)}
		}
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
