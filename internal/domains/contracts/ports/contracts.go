package ports

import (
	"context"

	classificationmodel "asset-classify/go-engine/internal/domains/classification/model"
	feesmodel "asset-classify/go-engine/internal/domains/fees/model"
	registrymodel "asset-classify/go-engine/internal/domains/registry/model"
)

// AddressValidator checks that an account address is well formed on the
// target ledger. The engine treats address syntax as an external concern.
type AddressValidator func(address string) error

// OwnershipOracle answers whether an address owns the asset behind a scope
// address. The host bounds how long the query may take via ctx.
type OwnershipOracle interface {
	IsOwner(ctx context.Context, ownerAddress, scopeAddress string) (bool, error)
}

// PaymentSink executes the transfers described by a fee payment detail,
// charging the payer. The state machine commits nothing until the sink
// reports success.
type PaymentSink interface {
	ExecutePayments(ctx context.Context, payerAddress string, detail feesmodel.FeePaymentDetail) error
}

// RecordPolicy reports whether an asset must carry verifiable underlying
// records before onboarding. Test environments inject a permissive policy.
type RecordPolicy interface {
	RequiresAssetRecords(assetType string) bool
}

// RecordOracle answers whether the asset behind a scope address carries any
// underlying records. Consulted only when the record policy demands them.
type RecordOracle interface {
	HasAssetRecords(ctx context.Context, scopeAddress string) (bool, error)
}

// RegistryAPI is the transport-neutral asset definition contract.
type RegistryAPI interface {
	AddDefinition(callerAddress string, def registrymodel.AssetDefinition) error
	UpdateDefinition(callerAddress string, def registrymodel.AssetDefinition) error
	GetDefinition(assetType string) (registrymodel.AssetDefinition, error)
	ListDefinitions() []registrymodel.AssetDefinition
	SetEnabled(callerAddress, assetType string, expectedCurrent, newValue bool) error
	AddVerifier(callerAddress, assetType string, verifier registrymodel.VerifierDetail) error
	UpdateVerifier(callerAddress, assetType string, verifier registrymodel.VerifierDetail) error
	DeleteDefinition(callerAddress, assetType string) error
}

// ClassificationAPI is the transport-neutral onboarding/verification contract.
type ClassificationAPI interface {
	Onboard(ctx context.Context, req classificationmodel.OnboardRequest) (classificationmodel.AssetScopeAttribute, error)
	Verify(ctx context.Context, req classificationmodel.VerifyRequest) (classificationmodel.AssetScopeAttribute, error)
	UpdateAccessRoutes(req classificationmodel.UpdateAccessRoutesRequest) (classificationmodel.AssetScopeAttribute, error)
	GetAttribute(identifier classificationmodel.AssetIdentifier, assetType string) (classificationmodel.AssetScopeAttribute, error)
	ListAttributes(identifier classificationmodel.AssetIdentifier) ([]classificationmodel.AssetScopeAttribute, error)
	PreviewPayment(req classificationmodel.OnboardRequest) (feesmodel.FeePaymentDetail, error)
}

// EngineService is the aggregate surface consumed by the RPC transport.
type EngineService interface {
	RegistryAPI
	ClassificationAPI
}
