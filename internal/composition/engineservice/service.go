// Package engineservice assembles the classification engine: the asset
// definition registry, the onboarding/verification state machine, and the
// ledger collaborators, behind the transport-neutral engine interface.
package engineservice

import (
	"context"
	"log/slog"

	"asset-classify/go-engine/internal/adapters/ledger"
	"asset-classify/go-engine/internal/bootstrap/engineconfig"
	"asset-classify/go-engine/internal/domains/classification"
	classificationmodel "asset-classify/go-engine/internal/domains/classification/model"
	classificationusecase "asset-classify/go-engine/internal/domains/classification/usecase"
	"asset-classify/go-engine/internal/domains/contracts/ports"
	feesmodel "asset-classify/go-engine/internal/domains/fees/model"
	"asset-classify/go-engine/internal/domains/registry"
	registrymodel "asset-classify/go-engine/internal/domains/registry/model"
	registryusecase "asset-classify/go-engine/internal/domains/registry/usecase"
	"asset-classify/go-engine/internal/platform/metrics"
)

// Service implements ports.EngineService by delegating to the domain
// usecases it wires together.
type Service struct {
	registryCore *registryusecase.Service
	classifyCore *classificationusecase.Service

	logger  *slog.Logger
	metrics *metrics.Registry
}

var _ ports.EngineService = (*Service)(nil)

// Options lets callers swap the external collaborators; nil fields fall back
// to the in-process ledger.
type Options struct {
	Logger          *slog.Logger
	Metrics         *metrics.Registry
	Ownership       ports.OwnershipOracle
	Payments        ports.PaymentSink
	Records         ports.RecordOracle
	RecordPolicy    ports.RecordPolicy
	ValidateAddress ports.AddressValidator
}

// recordPolicy relaxes the underlying-record requirement in test mode;
// production deployments require records for every type.
type recordPolicy struct{ relaxed bool }

func (p recordPolicy) RequiresAssetRecords(string) bool { return !p.relaxed }

func New(cfg engineconfig.Config, opts Options) (*Service, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Ownership == nil || opts.Payments == nil || opts.Records == nil {
		local := ledger.NewLocal()
		if opts.Ownership == nil {
			opts.Ownership = local
		}
		if opts.Payments == nil {
			opts.Payments = local
		}
		if opts.Records == nil {
			opts.Records = local
		}
	}
	if opts.RecordPolicy == nil {
		opts.RecordPolicy = recordPolicy{relaxed: cfg.TestMode}
	}
	if opts.ValidateAddress == nil {
		opts.ValidateAddress = ledger.ValidateAddress
	}

	svc := &Service{
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if opts.Metrics != nil {
		opts.Payments = meteredSink{next: opts.Payments, metrics: opts.Metrics}
	}

	registryStore := registry.NewSnapshotStore()
	registryStore.Configure(cfg.RegistrySnapshotPath)
	svc.registryCore = registryusecase.NewService(
		registryStore,
		cfg.AdminAddress,
		cfg.AllowedDenoms,
		opts.ValidateAddress,
		svc.recordError,
	)

	attributeStore := classification.NewSnapshotStore()
	attributeStore.Configure(cfg.AttributesSnapshotPath)
	svc.classifyCore = classificationusecase.NewService(
		attributeStore,
		svc.registryCore,
		opts.Ownership,
		opts.Payments,
		opts.RecordPolicy,
		opts.Records,
		cfg.AdminAddress,
		svc.recordError,
	)

	if err := svc.registryCore.Bootstrap(); err != nil {
		return nil, err
	}
	if err := svc.classifyCore.Bootstrap(); err != nil {
		return nil, err
	}
	return svc, nil
}

// meteredSink counts the fees that actually moved, after the inner sink
// confirms the batch.
type meteredSink struct {
	next    ports.PaymentSink
	metrics *metrics.Registry
}

func (m meteredSink) ExecutePayments(ctx context.Context, payerAddress string, detail feesmodel.FeePaymentDetail) error {
	if err := m.next.ExecutePayments(ctx, payerAddress, detail); err != nil {
		return err
	}
	totals := map[string]uint64{}
	for _, p := range detail.Payments {
		totals[p.Denom] += p.Amount
	}
	for denom, amount := range totals {
		m.metrics.ObserveFees(denom, amount)
	}
	return nil
}

func (s *Service) recordError(source string, err error) {
	s.logger.Error("collaborator failure", "source", source, "error", err)
	if s.metrics != nil {
		s.metrics.ObserveUpstreamError(source)
	}
}

// Registry surface.

func (s *Service) AddDefinition(callerAddress string, def registrymodel.AssetDefinition) error {
	return s.registryCore.AddDefinition(callerAddress, def)
}

func (s *Service) UpdateDefinition(callerAddress string, def registrymodel.AssetDefinition) error {
	return s.registryCore.UpdateDefinition(callerAddress, def)
}

func (s *Service) GetDefinition(assetType string) (registrymodel.AssetDefinition, error) {
	return s.registryCore.GetDefinition(assetType)
}

func (s *Service) ListDefinitions() []registrymodel.AssetDefinition {
	return s.registryCore.ListDefinitions()
}

func (s *Service) SetEnabled(callerAddress, assetType string, expectedCurrent, newValue bool) error {
	return s.registryCore.SetEnabled(callerAddress, assetType, expectedCurrent, newValue)
}

func (s *Service) AddVerifier(callerAddress, assetType string, verifier registrymodel.VerifierDetail) error {
	return s.registryCore.AddVerifier(callerAddress, assetType, verifier)
}

func (s *Service) UpdateVerifier(callerAddress, assetType string, verifier registrymodel.VerifierDetail) error {
	return s.registryCore.UpdateVerifier(callerAddress, assetType, verifier)
}

func (s *Service) DeleteDefinition(callerAddress, assetType string) error {
	return s.registryCore.DeleteDefinition(callerAddress, assetType)
}

// Classification surface.

func (s *Service) Onboard(ctx context.Context, req classificationmodel.OnboardRequest) (classificationmodel.AssetScopeAttribute, error) {
	return s.classifyCore.Onboard(ctx, req)
}

func (s *Service) Verify(ctx context.Context, req classificationmodel.VerifyRequest) (classificationmodel.AssetScopeAttribute, error) {
	return s.classifyCore.Verify(ctx, req)
}

func (s *Service) UpdateAccessRoutes(req classificationmodel.UpdateAccessRoutesRequest) (classificationmodel.AssetScopeAttribute, error) {
	return s.classifyCore.UpdateAccessRoutes(req)
}

func (s *Service) GetAttribute(identifier classificationmodel.AssetIdentifier, assetType string) (classificationmodel.AssetScopeAttribute, error) {
	return s.classifyCore.GetAttribute(identifier, assetType)
}

func (s *Service) ListAttributes(identifier classificationmodel.AssetIdentifier) ([]classificationmodel.AssetScopeAttribute, error) {
	return s.classifyCore.ListAttributes(identifier)
}

func (s *Service) PreviewPayment(req classificationmodel.OnboardRequest) (feesmodel.FeePaymentDetail, error) {
	return s.classifyCore.PreviewPayment(req)
}
