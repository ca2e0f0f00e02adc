package model

import (
	"math/bits"
	"strings"
)

// AssetDefinition describes one onboardable asset type and the verifiers
// configured to classify it.
type AssetDefinition struct {
	AssetType   string           `json:"asset_type"`
	DisplayName string           `json:"display_name,omitempty"`
	Enabled     bool             `json:"enabled"`
	Verifiers   []VerifierDetail `json:"verifiers"`
}

// VerifierDetail holds one verifier's economic terms for one asset type.
// The root onboarding cost applies to first-time classifications; RetryCost
// and SubsequentClassificationDetail override it for their scenarios.
type VerifierDetail struct {
	Address         string           `json:"address"`
	OnboardingCost  uint64           `json:"onboarding_cost"`
	OnboardingDenom string           `json:"onboarding_denom"`
	FeeDestinations []FeeDestination `json:"fee_destinations,omitempty"`
	EntityDetail    *EntityDetail    `json:"entity_detail,omitempty"`
	RetryCost       *OnboardingCost  `json:"retry_cost,omitempty"`

	SubsequentClassificationDetail *SubsequentClassificationDetail `json:"subsequent_classification_detail,omitempty"`
}

// OnboardingCost overrides the root cost and destinations for retry or
// subsequent-classification scenarios.
type OnboardingCost struct {
	Cost            uint64           `json:"cost"`
	FeeDestinations []FeeDestination `json:"fee_destinations,omitempty"`
}

// FeeDestination routes part of an onboarding fee to a recipient other than
// the verifier. Amounts are denominated in the owning verifier's denom.
type FeeDestination struct {
	Address      string        `json:"address"`
	FeeAmount    uint64        `json:"fee_amount"`
	EntityDetail *EntityDetail `json:"entity_detail,omitempty"`
}

// EntityDetail is an optional human-readable description of a fee recipient
// or verifier organization.
type EntityDetail struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	HomeURL     string `json:"home_url,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

// SubsequentClassificationDetail prices classifying an asset that the same
// verifier already classified under a different type. An absent
// ApplicableAssetTypes list means the override applies to any other type;
// when present it must be non-empty.
type SubsequentClassificationDetail struct {
	Cost                 OnboardingCost `json:"cost"`
	ApplicableAssetTypes []string       `json:"applicable_asset_types,omitempty"`
}

// NormalizeAssetType produces the canonical registry key for an asset type.
func NormalizeAssetType(assetType string) string {
	return strings.ToLower(strings.TrimSpace(assetType))
}

// FeeTotal sums the destination amounts of an onboarding cost with checked
// addition. ok is false when the sum does not fit in uint64; a wrapped total
// must never reach the cost comparison, or conservation silently breaks.
func (c OnboardingCost) FeeTotal() (total uint64, ok bool) {
	for _, dest := range c.FeeDestinations {
		var carry uint64
		total, carry = bits.Add64(total, dest.FeeAmount, 0)
		if carry != 0 {
			return 0, false
		}
	}
	return total, true
}

// RootCost returns the verifier's base cost expressed as an OnboardingCost.
func (v VerifierDetail) RootCost() OnboardingCost {
	return OnboardingCost{
		Cost:            v.OnboardingCost,
		FeeDestinations: v.FeeDestinations,
	}
}

// FindVerifier locates a verifier by address within a definition.
func (d AssetDefinition) FindVerifier(address string) (VerifierDetail, bool) {
	for _, v := range d.Verifiers {
		if v.Address == address {
			return v, true
		}
	}
	return VerifierDetail{}, false
}

// Clone deep-copies a definition so registry reads never alias stored state.
func (d AssetDefinition) Clone() AssetDefinition {
	out := d
	out.Verifiers = make([]VerifierDetail, len(d.Verifiers))
	for i, v := range d.Verifiers {
		out.Verifiers[i] = v.Clone()
	}
	return out
}

// Clone deep-copies a verifier detail.
func (v VerifierDetail) Clone() VerifierDetail {
	out := v
	out.FeeDestinations = cloneDestinations(v.FeeDestinations)
	if v.EntityDetail != nil {
		detail := *v.EntityDetail
		out.EntityDetail = &detail
	}
	if v.RetryCost != nil {
		retry := v.RetryCost.Clone()
		out.RetryCost = &retry
	}
	if v.SubsequentClassificationDetail != nil {
		sub := SubsequentClassificationDetail{
			Cost:                 v.SubsequentClassificationDetail.Cost.Clone(),
			ApplicableAssetTypes: append([]string(nil), v.SubsequentClassificationDetail.ApplicableAssetTypes...),
		}
		out.SubsequentClassificationDetail = &sub
	}
	return out
}

// Clone deep-copies an onboarding cost.
func (c OnboardingCost) Clone() OnboardingCost {
	return OnboardingCost{
		Cost:            c.Cost,
		FeeDestinations: cloneDestinations(c.FeeDestinations),
	}
}

func cloneDestinations(in []FeeDestination) []FeeDestination {
	if in == nil {
		return nil
	}
	out := make([]FeeDestination, len(in))
	for i, dest := range in {
		out[i] = dest
		if dest.EntityDetail != nil {
			detail := *dest.EntityDetail
			out[i].EntityDetail = &detail
		}
	}
	return out
}
