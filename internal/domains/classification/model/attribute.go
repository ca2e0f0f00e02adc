package model

import (
	"fmt"
	"strings"
)

// OnboardingStatus is the lifecycle state of one asset-type classification.
type OnboardingStatus string

const (
	StatusPending  OnboardingStatus = "pending"
	StatusApproved OnboardingStatus = "approved"
	StatusDenied   OnboardingStatus = "denied"
)

func (s OnboardingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return true
	default:
		return false
	}
}

func ParseOnboardingStatus(raw string) (OnboardingStatus, error) {
	status := OnboardingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown onboarding status %q", raw)
	}
	return status, nil
}

// VerificationResult records the verifier's decision on a pending attribute.
type VerificationResult struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// AccessDefinitionType tells which party recorded a set of access routes.
type AccessDefinitionType string

const (
	AccessTypeRequestor AccessDefinitionType = "requestor"
	AccessTypeVerifier  AccessDefinitionType = "verifier"
)

func (t AccessDefinitionType) Valid() bool {
	return t == AccessTypeRequestor || t == AccessTypeVerifier
}

// AccessRoute points at a location where the asset's underlying data can be
// fetched. Name is an optional label chosen by the route's owner.
type AccessRoute struct {
	Route string `json:"route"`
	Name  string `json:"name,omitempty"`
}

// AccessDefinition groups the access routes recorded by one party.
type AccessDefinition struct {
	OwnerAddress   string               `json:"owner_address"`
	AccessRoutes   []AccessRoute        `json:"access_routes"`
	DefinitionType AccessDefinitionType `json:"definition_type"`
}

func (d AccessDefinition) Clone() AccessDefinition {
	out := d
	if d.AccessRoutes != nil {
		out.AccessRoutes = make([]AccessRoute, len(d.AccessRoutes))
		copy(out.AccessRoutes, d.AccessRoutes)
	}
	return out
}

// AssetScopeAttribute is the mutable classification record for one asset
// instance under one asset type. An asset may hold several attributes, one
// per type, and each advances through the onboarding lifecycle independently.
type AssetScopeAttribute struct {
	AssetUUID                string              `json:"asset_uuid"`
	ScopeAddress             string              `json:"scope_address"`
	AssetType                string              `json:"asset_type"`
	RequestorAddress         string              `json:"requestor_address"`
	VerifierAddress          string              `json:"verifier_address"`
	OnboardingStatus         OnboardingStatus    `json:"onboarding_status"`
	LatestVerificationResult *VerificationResult `json:"latest_verification_result,omitempty"`
	AccessDefinitions        []AccessDefinition  `json:"access_definitions"`
}

func (a AssetScopeAttribute) Clone() AssetScopeAttribute {
	out := a
	if a.LatestVerificationResult != nil {
		result := *a.LatestVerificationResult
		out.LatestVerificationResult = &result
	}
	if a.AccessDefinitions != nil {
		out.AccessDefinitions = make([]AccessDefinition, len(a.AccessDefinitions))
		for i, def := range a.AccessDefinitions {
			out.AccessDefinitions[i] = def.Clone()
		}
	}
	return out
}

// FindAccessDefinition returns the access definition recorded by the given
// owner, if any.
func (a AssetScopeAttribute) FindAccessDefinition(ownerAddress string) (AccessDefinition, bool) {
	for _, def := range a.AccessDefinitions {
		if def.OwnerAddress == ownerAddress {
			return def.Clone(), true
		}
	}
	return AccessDefinition{}, false
}
