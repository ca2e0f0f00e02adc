package usecase

import (
	"context"
	"sort"
	"sync"

	"asset-classify/go-engine/internal/domains/classification"
	"asset-classify/go-engine/internal/domains/classification/model"
	"asset-classify/go-engine/internal/domains/classification/policy"
	"asset-classify/go-engine/internal/domains/contracts"
	"asset-classify/go-engine/internal/domains/contracts/ports"
	"asset-classify/go-engine/internal/domains/fees"
	feesmodel "asset-classify/go-engine/internal/domains/fees/model"
	registrymodel "asset-classify/go-engine/internal/domains/registry/model"
)

const defaultVerificationMessage = "verification completed without a message"

// DefinitionResolver is the slice of the registry the state machine needs.
type DefinitionResolver interface {
	GetDefinition(assetType string) (registrymodel.AssetDefinition, error)
}

// AttributeStateStore persists scope attributes between runs.
type AttributeStateStore interface {
	Configure(path string)
	Bootstrap() (map[string]classification.AttributeSet, error)
	Persist(attributes map[string]classification.AttributeSet) error
}

// Service drives the onboarding/verification lifecycle. Every transition
// validates all preconditions first, executes external effects next, and
// commits attribute state last, so a failure at any step leaves nothing
// half-applied.
type Service struct {
	state        AttributeStateStore
	registry     DefinitionResolver
	ownership    ports.OwnershipOracle
	payments     ports.PaymentSink
	recordPolicy ports.RecordPolicy
	records      ports.RecordOracle
	adminAddress string
	recordError  func(string, error)

	mu         sync.RWMutex
	attributes map[string]classification.AttributeSet
	inflight   map[string]struct{}
}

func NewService(
	state AttributeStateStore,
	registry DefinitionResolver,
	ownership ports.OwnershipOracle,
	payments ports.PaymentSink,
	recordPolicy ports.RecordPolicy,
	records ports.RecordOracle,
	adminAddress string,
	recordError func(string, error),
) *Service {
	return &Service{
		state:        state,
		registry:     registry,
		ownership:    ownership,
		payments:     payments,
		recordPolicy: recordPolicy,
		records:      records,
		adminAddress: adminAddress,
		recordError:  recordError,
		attributes:   map[string]classification.AttributeSet{},
		inflight:     map[string]struct{}{},
	}
}

func (s *Service) Configure(path string) {
	s.state.Configure(path)
}

func (s *Service) Bootstrap() error {
	attrs, err := s.state.Bootstrap()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.attributes = attrs
	s.mu.Unlock()
	return nil
}

// Onboard registers an asset for classification under one type, charging the
// onboarding fee before any attribute is written. The resulting attribute
// always starts Pending.
func (s *Service) Onboard(ctx context.Context, req model.OnboardRequest) (model.AssetScopeAttribute, error) {
	assetUUID, scopeAddress, err := policy.ResolveIdentifier(req.Identifier)
	if err != nil {
		return model.AssetScopeAttribute{}, contracts.NewKindError(contracts.KindNotFound, err)
	}
	assetType := registrymodel.NormalizeAssetType(req.AssetType)

	verifier, err := s.resolveVerifier(assetType, req.VerifierAddress)
	if err != nil {
		return model.AssetScopeAttribute{}, err
	}
	if err := s.checkOwnershipAndRecords(ctx, req.CallerAddress, scopeAddress, assetType); err != nil {
		return model.AssetScopeAttribute{}, err
	}
	classCtx, err := s.deriveContext(scopeAddress, assetType)
	if err != nil {
		return model.AssetScopeAttribute{}, err
	}
	if err := s.reserveOnboard(scopeAddress, assetType); err != nil {
		return model.AssetScopeAttribute{}, err
	}
	defer s.releaseOnboard(scopeAddress, assetType)

	detail, err := fees.CalculatePayment(scopeAddress, verifier, classCtx)
	if err != nil {
		return model.AssetScopeAttribute{}, err
	}
	if err := s.payments.ExecutePayments(ctx, req.CallerAddress, detail); err != nil {
		return model.AssetScopeAttribute{}, contracts.UpstreamFailure("payment sink", err)
	}

	attr := model.AssetScopeAttribute{
		AssetUUID:        assetUUID,
		ScopeAddress:     scopeAddress,
		AssetType:        assetType,
		RequestorAddress: req.CallerAddress,
		VerifierAddress:  verifier.Address,
		OnboardingStatus: model.StatusPending,
	}
	if routes := policy.CleanAccessRoutes(req.AccessRoutes); routes != nil {
		attr.AccessDefinitions = []model.AccessDefinition{{
			OwnerAddress:   req.CallerAddress,
			AccessRoutes:   routes,
			DefinitionType: model.AccessTypeRequestor,
		}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The reservation keeps concurrent onboards of the same pair out while
	// the fee moves; re-check under the write lock anyway before writing.
	if existing, ok := s.attributeLocked(scopeAddress, assetType); ok && existing.OnboardingStatus != model.StatusDenied {
		return model.AssetScopeAttribute{}, contracts.IllegalStatef(
			"asset %s is already %s under type %q", scopeAddress, existing.OnboardingStatus, assetType,
		)
	}
	if err := s.commitLocked(attr); err != nil {
		return model.AssetScopeAttribute{}, err
	}
	return attr.Clone(), nil
}

// Verify records the verifier's decision on a pending attribute. No fee
// moves here; a denial is re-priced through the retry path at the next
// onboard instead of being refunded.
func (s *Service) Verify(_ context.Context, req model.VerifyRequest) (model.AssetScopeAttribute, error) {
	_, scopeAddress, err := policy.ResolveIdentifier(req.Identifier)
	if err != nil {
		return model.AssetScopeAttribute{}, contracts.NewKindError(contracts.KindNotFound, err)
	}
	assetType := registrymodel.NormalizeAssetType(req.AssetType)

	s.mu.Lock()
	defer s.mu.Unlock()
	attr, ok := s.attributeLocked(scopeAddress, assetType)
	if !ok {
		return model.AssetScopeAttribute{}, contracts.NotFoundf(
			"asset %s carries no %q classification attribute", scopeAddress, assetType,
		)
	}
	if attr.OnboardingStatus != model.StatusPending {
		return model.AssetScopeAttribute{}, contracts.IllegalStatef(
			"asset %s under type %q is %s, only pending attributes can be verified",
			scopeAddress, assetType, attr.OnboardingStatus,
		)
	}
	if req.CallerAddress != attr.VerifierAddress {
		return model.AssetScopeAttribute{}, contracts.Unauthorizedf(
			"caller %q is not the verifier chosen for asset %s", req.CallerAddress, scopeAddress,
		)
	}

	updated := attr.Clone()
	if req.Success {
		updated.OnboardingStatus = model.StatusApproved
	} else {
		updated.OnboardingStatus = model.StatusDenied
	}
	message := req.Message
	if message == "" {
		message = defaultVerificationMessage
	}
	updated.LatestVerificationResult = &model.VerificationResult{
		Message: message,
		Success: req.Success,
	}
	if routes := policy.CleanAccessRoutes(req.AccessRoutes); routes != nil {
		updated.AccessDefinitions = policy.ReplaceAccessDefinition(updated.AccessDefinitions, model.AccessDefinition{
			OwnerAddress:   attr.VerifierAddress,
			AccessRoutes:   routes,
			DefinitionType: model.AccessTypeVerifier,
		})
	}
	if err := s.commitLocked(updated); err != nil {
		return model.AssetScopeAttribute{}, err
	}
	return updated.Clone(), nil
}

// UpdateAccessRoutes replaces one owner's routes wholesale. Admins may act
// on behalf of any owner; everyone else only on their own definition. An
// update whose routes all filter out as blank is rejected rather than
// committed as an empty list.
func (s *Service) UpdateAccessRoutes(req model.UpdateAccessRoutesRequest) (model.AssetScopeAttribute, error) {
	_, scopeAddress, err := policy.ResolveIdentifier(req.Identifier)
	if err != nil {
		return model.AssetScopeAttribute{}, contracts.NewKindError(contracts.KindNotFound, err)
	}
	assetType := registrymodel.NormalizeAssetType(req.AssetType)
	if req.CallerAddress != s.adminAddress && req.CallerAddress != req.OwnerAddress {
		return model.AssetScopeAttribute{}, contracts.Unauthorizedf(
			"caller %q may not edit access routes owned by %q", req.CallerAddress, req.OwnerAddress,
		)
	}
	routes := policy.CleanAccessRoutes(req.AccessRoutes)
	if routes == nil {
		return model.AssetScopeAttribute{}, contracts.NewInvalidConfiguration("access routes", []string{
			"access_routes: at least one non-blank route is required",
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	attr, ok := s.attributeLocked(scopeAddress, assetType)
	if !ok {
		return model.AssetScopeAttribute{}, contracts.NotFoundf(
			"asset %s carries no %q classification attribute", scopeAddress, assetType,
		)
	}
	existing, ok := attr.FindAccessDefinition(req.OwnerAddress)
	if !ok {
		return model.AssetScopeAttribute{}, contracts.NotFoundf(
			"asset %s has no access definition owned by %q", scopeAddress, req.OwnerAddress,
		)
	}

	updated := attr.Clone()
	replacement := existing
	replacement.AccessRoutes = routes
	updated.AccessDefinitions = policy.ReplaceAccessDefinition(updated.AccessDefinitions, replacement)
	if err := s.commitLocked(updated); err != nil {
		return model.AssetScopeAttribute{}, err
	}
	return updated.Clone(), nil
}

func (s *Service) GetAttribute(identifier model.AssetIdentifier, assetType string) (model.AssetScopeAttribute, error) {
	_, scopeAddress, err := policy.ResolveIdentifier(identifier)
	if err != nil {
		return model.AssetScopeAttribute{}, contracts.NewKindError(contracts.KindNotFound, err)
	}
	key := registrymodel.NormalizeAssetType(assetType)

	s.mu.RLock()
	attr, ok := s.attributeLocked(scopeAddress, key)
	s.mu.RUnlock()
	if !ok {
		return model.AssetScopeAttribute{}, contracts.NotFoundf(
			"asset %s carries no %q classification attribute", scopeAddress, key,
		)
	}
	return attr.Clone(), nil
}

func (s *Service) ListAttributes(identifier model.AssetIdentifier) ([]model.AssetScopeAttribute, error) {
	_, scopeAddress, err := policy.ResolveIdentifier(identifier)
	if err != nil {
		return nil, contracts.NewKindError(contracts.KindNotFound, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.attributes[scopeAddress]
	out := make([]model.AssetScopeAttribute, 0, len(set))
	for _, attr := range set {
		out = append(out, attr.Clone())
	}
	sortAttributes(out)
	return out, nil
}

// PreviewPayment computes the payment plan an onboard request would incur
// without moving funds or touching any attribute.
func (s *Service) PreviewPayment(req model.OnboardRequest) (feesmodel.FeePaymentDetail, error) {
	_, scopeAddress, err := policy.ResolveIdentifier(req.Identifier)
	if err != nil {
		return feesmodel.FeePaymentDetail{}, contracts.NewKindError(contracts.KindNotFound, err)
	}
	assetType := registrymodel.NormalizeAssetType(req.AssetType)
	verifier, err := s.resolveVerifier(assetType, req.VerifierAddress)
	if err != nil {
		return feesmodel.FeePaymentDetail{}, err
	}
	classCtx, err := s.deriveContext(scopeAddress, assetType)
	if err != nil {
		return feesmodel.FeePaymentDetail{}, err
	}
	return fees.CalculatePayment(scopeAddress, verifier, classCtx)
}

// resolveVerifier runs the registry-side onboarding preconditions: the asset
// type must be registered and enabled, and the chosen verifier configured.
func (s *Service) resolveVerifier(assetType, verifierAddress string) (registrymodel.VerifierDetail, error) {
	def, err := s.registry.GetDefinition(assetType)
	if err != nil {
		return registrymodel.VerifierDetail{}, err
	}
	if !def.Enabled {
		return registrymodel.VerifierDetail{}, contracts.IllegalStatef(
			"asset type %q is disabled for new onboarding", assetType,
		)
	}
	verifier, ok := def.FindVerifier(verifierAddress)
	if !ok {
		return registrymodel.VerifierDetail{}, contracts.NotFoundf(
			"verifier %q is not configured for asset type %q", verifierAddress, assetType,
		)
	}
	return verifier, nil
}

// deriveContext inspects the asset's existing attributes and picks the
// pricing scenario. Retry wins over subsequent when a denied attribute for
// the same type coexists with other live types, since retry targets the
// exact type being re-onboarded.
func (s *Service) deriveContext(scopeAddress, assetType string) (fees.ClassificationContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.attributes[scopeAddress]
	if existing, ok := set[assetType]; ok {
		if existing.OnboardingStatus != model.StatusDenied {
			return fees.ClassificationContext{}, contracts.IllegalStatef(
				"asset %s is already %s under type %q", scopeAddress, existing.OnboardingStatus, assetType,
			)
		}
		return fees.Retry(), nil
	}
	var otherTypes []string
	for otherType, attr := range set {
		if otherType == assetType {
			continue
		}
		if attr.OnboardingStatus == model.StatusPending || attr.OnboardingStatus == model.StatusApproved {
			otherTypes = append(otherTypes, otherType)
		}
	}
	if len(otherTypes) > 0 {
		return fees.Subsequent(otherTypes), nil
	}
	return fees.FirstTime(), nil
}

// reserveOnboard claims the scope/type pair for one in-flight onboarding.
// The payment executes outside the lock, so without the claim two onboards
// interleaved between the precondition check and the commit would both
// charge the fee and race on the attribute write.
func (s *Service) reserveOnboard(scopeAddress, assetType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.attributeLocked(scopeAddress, assetType); ok && existing.OnboardingStatus != model.StatusDenied {
		return contracts.IllegalStatef(
			"asset %s is already %s under type %q", scopeAddress, existing.OnboardingStatus, assetType,
		)
	}
	key := scopeAddress + "/" + assetType
	if _, busy := s.inflight[key]; busy {
		return contracts.IllegalStatef(
			"an onboarding for asset %s under type %q is already in progress", scopeAddress, assetType,
		)
	}
	s.inflight[key] = struct{}{}
	return nil
}

func (s *Service) releaseOnboard(scopeAddress, assetType string) {
	s.mu.Lock()
	delete(s.inflight, scopeAddress+"/"+assetType)
	s.mu.Unlock()
}

func (s *Service) checkOwnershipAndRecords(ctx context.Context, callerAddress, scopeAddress, assetType string) error {
	owns, err := s.ownership.IsOwner(ctx, callerAddress, scopeAddress)
	if err != nil {
		return contracts.UpstreamFailure("ownership oracle", err)
	}
	if !owns {
		return contracts.Unauthorizedf("caller %q does not own asset %s", callerAddress, scopeAddress)
	}
	if s.recordPolicy != nil && s.recordPolicy.RequiresAssetRecords(assetType) {
		hasRecords, err := s.records.HasAssetRecords(ctx, scopeAddress)
		if err != nil {
			return contracts.UpstreamFailure("record oracle", err)
		}
		if !hasRecords {
			return contracts.IllegalStatef(
				"asset %s carries no underlying records and type %q requires them", scopeAddress, assetType,
			)
		}
	}
	return nil
}

func (s *Service) attributeLocked(scopeAddress, assetType string) (model.AssetScopeAttribute, bool) {
	attr, ok := s.attributes[scopeAddress][assetType]
	return attr, ok
}

// commitLocked persists the attribute map with one entry replaced and swaps
// memory only on success. Callers hold the write lock.
func (s *Service) commitLocked(attr model.AssetScopeAttribute) error {
	next := make(map[string]classification.AttributeSet, len(s.attributes)+1)
	for scope, set := range s.attributes {
		next[scope] = set
	}
	nextSet := make(classification.AttributeSet, len(next[attr.ScopeAddress])+1)
	for assetType, existing := range s.attributes[attr.ScopeAddress] {
		nextSet[assetType] = existing
	}
	nextSet[attr.AssetType] = attr.Clone()
	next[attr.ScopeAddress] = nextSet
	if err := s.state.Persist(next); err != nil {
		if s.recordError != nil {
			s.recordError("storage", err)
		}
		return err
	}
	s.attributes = next
	return nil
}

func sortAttributes(attrs []model.AssetScopeAttribute) {
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].AssetType < attrs[j].AssetType })
}
