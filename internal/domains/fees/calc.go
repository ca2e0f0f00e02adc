package fees

import (
	"fmt"

	"asset-classify/go-engine/internal/domains/contracts"
	"asset-classify/go-engine/internal/domains/fees/model"
	registrymodel "asset-classify/go-engine/internal/domains/registry/model"
)

// ContextKind identifies which pricing scenario applies to a classification.
type ContextKind string

const (
	ContextFirstTime  ContextKind = "first_time"
	ContextRetry      ContextKind = "retry"
	ContextSubsequent ContextKind = "subsequent"
)

// ClassificationContext describes the scenario under which an asset is being
// onboarded. ExistingAssetTypes is populated only for the subsequent case.
type ClassificationContext struct {
	Kind               ContextKind
	ExistingAssetTypes []string
}

func FirstTime() ClassificationContext {
	return ClassificationContext{Kind: ContextFirstTime}
}

func Retry() ClassificationContext {
	return ClassificationContext{Kind: ContextRetry}
}

func Subsequent(existingAssetTypes []string) ClassificationContext {
	return ClassificationContext{
		Kind:               ContextSubsequent,
		ExistingAssetTypes: existingAssetTypes,
	}
}

// CalculatePayment produces the exact payment breakdown for one onboarding
// event: one line per fee destination plus a remainder line to the verifier
// when the remainder is positive. The sum of all emitted amounts always
// equals the selected cost. Pure function; safe to call for previews.
func CalculatePayment(
	scopeAddress string,
	verifier registrymodel.VerifierDetail,
	ctx ClassificationContext,
) (model.FeePaymentDetail, error) {
	cost := SelectCost(verifier, ctx)
	total, ok := cost.FeeTotal()
	if !ok {
		return model.FeePaymentDetail{}, contracts.NewInvalidConfiguration("verifier", []string{
			fmt.Sprintf("fee total overflows uint64 against the onboarding cost (%d%s)", cost.Cost, verifier.OnboardingDenom),
		})
	}
	if total > cost.Cost {
		return model.FeePaymentDetail{}, contracts.NewInvalidConfiguration("verifier", []string{
			fmt.Sprintf(
				"fee total (%d%s) exceeds the onboarding cost (%d%s)",
				total, verifier.OnboardingDenom, cost.Cost, verifier.OnboardingDenom,
			),
		})
	}
	payments := make([]model.FeePayment, 0, len(cost.FeeDestinations)+1)
	for _, dest := range cost.FeeDestinations {
		payments = append(payments, model.FeePayment{
			Amount:    dest.FeeAmount,
			Denom:     verifier.OnboardingDenom,
			Name:      destinationFeeName(dest),
			Recipient: dest.Address,
		})
	}
	if remainder := cost.Cost - total; remainder > 0 {
		payments = append(payments, model.FeePayment{
			Amount:    remainder,
			Denom:     verifier.OnboardingDenom,
			Name:      verifierFeeName(verifier),
			Recipient: verifier.Address,
		})
	}
	return model.FeePaymentDetail{
		ScopeAddress: scopeAddress,
		Payments:     payments,
	}, nil
}

// SelectCost resolves which cost schedule applies, in priority order:
// subsequent-classification detail when the context qualifies, then the
// retry cost, then the verifier's root cost.
func SelectCost(verifier registrymodel.VerifierDetail, ctx ClassificationContext) registrymodel.OnboardingCost {
	switch ctx.Kind {
	case ContextSubsequent:
		if sub := verifier.SubsequentClassificationDetail; sub != nil && subsequentApplies(sub, ctx.ExistingAssetTypes) {
			return sub.Cost
		}
	case ContextRetry:
		if verifier.RetryCost != nil {
			return *verifier.RetryCost
		}
	}
	return verifier.RootCost()
}

// subsequentApplies reports whether the subsequent-classification override
// covers any of the asset types already held by the asset. A nil applicable
// list covers every type.
func subsequentApplies(sub *registrymodel.SubsequentClassificationDetail, existingAssetTypes []string) bool {
	if sub.ApplicableAssetTypes == nil {
		return true
	}
	existing := make(map[string]struct{}, len(existingAssetTypes))
	for _, assetType := range existingAssetTypes {
		existing[registrymodel.NormalizeAssetType(assetType)] = struct{}{}
	}
	for _, assetType := range sub.ApplicableAssetTypes {
		if _, ok := existing[registrymodel.NormalizeAssetType(assetType)]; ok {
			return true
		}
	}
	return false
}

func destinationFeeName(dest registrymodel.FeeDestination) string {
	if dest.EntityDetail != nil && dest.EntityDetail.Name != "" {
		return "Fee for " + dest.EntityDetail.Name
	}
	return "Fee for " + dest.Address
}

func verifierFeeName(verifier registrymodel.VerifierDetail) string {
	if verifier.EntityDetail != nil && verifier.EntityDetail.Name != "" {
		return verifier.EntityDetail.Name + " Verifier Fee"
	}
	return "Verifier Fee"
}
