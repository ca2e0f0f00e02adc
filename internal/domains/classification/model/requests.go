package model

import "fmt"

// AssetIdentifier names an asset by exactly one of its two identity forms.
// The scope address is always derivable from the UUID and vice versa, so
// callers may supply whichever they hold.
type AssetIdentifier struct {
	AssetUUID    string `json:"asset_uuid,omitempty"`
	ScopeAddress string `json:"scope_address,omitempty"`
}

func (id AssetIdentifier) Validate() error {
	if id.AssetUUID == "" && id.ScopeAddress == "" {
		return fmt.Errorf("asset identifier requires an asset_uuid or a scope_address")
	}
	if id.AssetUUID != "" && id.ScopeAddress != "" {
		return fmt.Errorf("asset identifier must carry exactly one of asset_uuid and scope_address")
	}
	return nil
}

// OnboardRequest starts (or restarts, after a denial) classification of an
// asset under one type with one verifier.
type OnboardRequest struct {
	CallerAddress   string          `json:"caller_address"`
	Identifier      AssetIdentifier `json:"identifier"`
	AssetType       string          `json:"asset_type"`
	VerifierAddress string          `json:"verifier_address"`
	AccessRoutes    []AccessRoute   `json:"access_routes,omitempty"`
}

// VerifyRequest records the verifier's decision on a pending attribute.
type VerifyRequest struct {
	CallerAddress string          `json:"caller_address"`
	Identifier    AssetIdentifier `json:"identifier"`
	AssetType     string          `json:"asset_type"`
	Success       bool            `json:"success"`
	Message       string          `json:"message,omitempty"`
	AccessRoutes  []AccessRoute   `json:"access_routes,omitempty"`
}

// UpdateAccessRoutesRequest replaces one owner's recorded routes in full.
type UpdateAccessRoutesRequest struct {
	CallerAddress string          `json:"caller_address"`
	Identifier    AssetIdentifier `json:"identifier"`
	AssetType     string          `json:"asset_type"`
	OwnerAddress  string          `json:"owner_address"`
	AccessRoutes  []AccessRoute   `json:"access_routes"`
}
