package usecase

import (
	"context"
	"errors"
	"testing"

	"asset-classify/go-engine/internal/domains/classification"
	"asset-classify/go-engine/internal/domains/classification/model"
	"asset-classify/go-engine/internal/domains/classification/policy"
	"asset-classify/go-engine/internal/domains/contracts"
	feesmodel "asset-classify/go-engine/internal/domains/fees/model"
	registrymodel "asset-classify/go-engine/internal/domains/registry/model"
)

const (
	adminAddr    = "admin1"
	ownerAddr    = "owner1"
	verifierAddr = "verifier1"
	assetUUID    = "a5f3c2d1-4b6e-4f9a-8c7d-2e1f0a9b8c7d"
)

type memoryAttributeStore struct {
	persisted  map[string]classification.AttributeSet
	persistErr error
}

func (m *memoryAttributeStore) Configure(string) {}

func (m *memoryAttributeStore) Bootstrap() (map[string]classification.AttributeSet, error) {
	if m.persisted == nil {
		return map[string]classification.AttributeSet{}, nil
	}
	return m.persisted, nil
}

func (m *memoryAttributeStore) Persist(attrs map[string]classification.AttributeSet) error {
	if m.persistErr != nil {
		return m.persistErr
	}
	m.persisted = attrs
	return nil
}

type fakeRegistry struct {
	definitions map[string]registrymodel.AssetDefinition
}

func (f *fakeRegistry) GetDefinition(assetType string) (registrymodel.AssetDefinition, error) {
	def, ok := f.definitions[assetType]
	if !ok {
		return registrymodel.AssetDefinition{}, contracts.NotFoundf("asset type %q is not registered", assetType)
	}
	return def, nil
}

type fakeOwnership struct {
	owner string
	err   error
}

func (f *fakeOwnership) IsOwner(_ context.Context, ownerAddress, _ string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return ownerAddress == f.owner, nil
}

type fakeSink struct {
	executed  []feesmodel.FeePaymentDetail
	err       error
	onExecute func()
}

func (f *fakeSink) ExecutePayments(_ context.Context, _ string, detail feesmodel.FeePaymentDetail) error {
	if f.err != nil {
		return f.err
	}
	f.executed = append(f.executed, detail)
	if f.onExecute != nil {
		f.onExecute()
	}
	return nil
}

type fakeRecordPolicy struct{ required bool }

func (f fakeRecordPolicy) RequiresAssetRecords(string) bool { return f.required }

type fakeRecordOracle struct {
	hasRecords bool
	err        error
}

func (f fakeRecordOracle) HasAssetRecords(context.Context, string) (bool, error) {
	return f.hasRecords, f.err
}

type fixture struct {
	svc       *Service
	store     *memoryAttributeStore
	registry  *fakeRegistry
	ownership *fakeOwnership
	sink      *fakeSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: &memoryAttributeStore{},
		registry: &fakeRegistry{definitions: map[string]registrymodel.AssetDefinition{
			"mortgage": {
				AssetType: "mortgage",
				Enabled:   true,
				Verifiers: []registrymodel.VerifierDetail{
					{
						Address:         verifierAddr,
						OnboardingCost:  1000,
						OnboardingDenom: "nhash",
						FeeDestinations: []registrymodel.FeeDestination{
							{Address: "dest-a", FeeAmount: 400},
							{Address: "dest-b", FeeAmount: 300},
						},
						RetryCost: &registrymodel.OnboardingCost{Cost: 20},
						SubsequentClassificationDetail: &registrymodel.SubsequentClassificationDetail{
							Cost: registrymodel.OnboardingCost{Cost: 250},
						},
					},
				},
			},
			"heloc": {
				AssetType: "heloc",
				Enabled:   true,
				Verifiers: []registrymodel.VerifierDetail{
					{Address: verifierAddr, OnboardingCost: 500, OnboardingDenom: "nhash"},
				},
			},
		}},
		ownership: &fakeOwnership{owner: ownerAddr},
		sink:      &fakeSink{},
	}
	f.svc = NewService(
		f.store, f.registry, f.ownership, f.sink,
		fakeRecordPolicy{}, fakeRecordOracle{}, adminAddr, nil,
	)
	if err := f.svc.Bootstrap(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	return f
}

func onboardReq(assetType string) model.OnboardRequest {
	return model.OnboardRequest{
		CallerAddress:   ownerAddr,
		Identifier:      model.AssetIdentifier{AssetUUID: assetUUID},
		AssetType:       assetType,
		VerifierAddress: verifierAddr,
	}
}

func TestOnboardCreatesPendingAttributeAfterPayment(t *testing.T) {
	f := newFixture(t)
	req := onboardReq("mortgage")
	req.AccessRoutes = []model.AccessRoute{{Route: "grpc://data.example.com", Name: "primary"}}

	attr, err := f.svc.Onboard(context.Background(), req)
	if err != nil {
		t.Fatalf("onboard failed: %v", err)
	}
	if attr.OnboardingStatus != model.StatusPending {
		t.Fatalf("expected pending, got %s", attr.OnboardingStatus)
	}
	if attr.AssetUUID != assetUUID || attr.VerifierAddress != verifierAddr || attr.RequestorAddress != ownerAddr {
		t.Fatalf("attribute fields wrong: %+v", attr)
	}
	if attr.LatestVerificationResult != nil {
		t.Fatal("a fresh attribute must carry no verification result")
	}
	wantScope, _ := policy.ScopeAddressFromUUID(assetUUID)
	if attr.ScopeAddress != wantScope {
		t.Fatalf("scope address %q does not match derived %q", attr.ScopeAddress, wantScope)
	}
	if len(attr.AccessDefinitions) != 1 || attr.AccessDefinitions[0].DefinitionType != model.AccessTypeRequestor {
		t.Fatalf("expected a requestor access definition: %+v", attr.AccessDefinitions)
	}
	if len(f.sink.executed) != 1 {
		t.Fatalf("expected one payment execution, got %d", len(f.sink.executed))
	}
	if total := f.sink.executed[0].Total(); total != 1000 {
		t.Fatalf("first-time onboarding must charge the full cost, got %d", total)
	}
}

func TestOnboardRejectsDisabledAssetType(t *testing.T) {
	f := newFixture(t)
	def := f.registry.definitions["mortgage"]
	def.Enabled = false
	f.registry.definitions["mortgage"] = def

	_, err := f.svc.Onboard(context.Background(), onboardReq("mortgage"))
	if !contracts.IsKind(err, contracts.KindIllegalStateTransition) {
		t.Fatalf("expected illegal state transition, got %v", err)
	}
	if len(f.sink.executed) != 0 {
		t.Fatal("no payment may run for a rejected onboard")
	}
}

func TestOnboardRejectsUnknownTypeAndVerifier(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Onboard(context.Background(), onboardReq("unknown"))
	if !contracts.IsKind(err, contracts.KindNotFound) {
		t.Fatalf("expected not found for an unknown type, got %v", err)
	}

	req := onboardReq("mortgage")
	req.VerifierAddress = "verifier9"
	_, err = f.svc.Onboard(context.Background(), req)
	if !contracts.IsKind(err, contracts.KindNotFound) {
		t.Fatalf("expected not found for an unknown verifier, got %v", err)
	}
}

func TestOnboardRejectsNonOwner(t *testing.T) {
	f := newFixture(t)
	req := onboardReq("mortgage")
	req.CallerAddress = "stranger"
	_, err := f.svc.Onboard(context.Background(), req)
	if !contracts.IsKind(err, contracts.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestOnboardSurfacesOracleFailure(t *testing.T) {
	f := newFixture(t)
	f.ownership.err = errors.New("ledger unreachable")
	_, err := f.svc.Onboard(context.Background(), onboardReq("mortgage"))
	if !contracts.IsKind(err, contracts.KindUpstreamFailure) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
}

func TestOnboardRejectsLiveAttribute(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Onboard(context.Background(), onboardReq("mortgage")); err != nil {
		t.Fatalf("first onboard failed: %v", err)
	}

	_, err := f.svc.Onboard(context.Background(), onboardReq("mortgage"))
	if !contracts.IsKind(err, contracts.KindIllegalStateTransition) {
		t.Fatalf("expected illegal state for a pending attribute, got %v", err)
	}

	f.verify(t, true, "")
	_, err = f.svc.Onboard(context.Background(), onboardReq("mortgage"))
	if !contracts.IsKind(err, contracts.KindIllegalStateTransition) {
		t.Fatalf("expected illegal state for an approved attribute, got %v", err)
	}
}

func TestOnboardInFlightBlocksSecondCharge(t *testing.T) {
	f := newFixture(t)
	var overlapErr error
	f.sink.onExecute = func() {
		// A second onboard for the same scope/type arriving while the first
		// payment is still settling must not charge again.
		f.sink.onExecute = nil
		_, overlapErr = f.svc.Onboard(context.Background(), onboardReq("mortgage"))
	}

	if _, err := f.svc.Onboard(context.Background(), onboardReq("mortgage")); err != nil {
		t.Fatalf("onboard failed: %v", err)
	}
	if !contracts.IsKind(overlapErr, contracts.KindIllegalStateTransition) {
		t.Fatalf("expected the overlapping onboard to fail with illegal state, got %v", overlapErr)
	}
	if len(f.sink.executed) != 1 {
		t.Fatalf("expected exactly one payment execution, got %d", len(f.sink.executed))
	}
}

func (f *fixture) verify(t *testing.T, success bool, message string) model.AssetScopeAttribute {
	t.Helper()
	attr, err := f.svc.Verify(context.Background(), model.VerifyRequest{
		CallerAddress: verifierAddr,
		Identifier:    model.AssetIdentifier{AssetUUID: assetUUID},
		AssetType:     "mortgage",
		Success:       success,
		Message:       message,
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	return attr
}

func TestDeniedAssetRetriesAtRetryCost(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Onboard(context.Background(), onboardReq("mortgage")); err != nil {
		t.Fatalf("onboard failed: %v", err)
	}
	f.verify(t, false, "records incomplete")

	attr, err := f.svc.Onboard(context.Background(), onboardReq("mortgage"))
	if err != nil {
		t.Fatalf("retry onboard failed: %v", err)
	}
	if attr.OnboardingStatus != model.StatusPending {
		t.Fatalf("retry must restart at pending, got %s", attr.OnboardingStatus)
	}
	if len(f.sink.executed) != 2 {
		t.Fatalf("expected two payment executions, got %d", len(f.sink.executed))
	}
	if total := f.sink.executed[1].Total(); total != 20 {
		t.Fatalf("retry must charge the retry cost of 20, got %d", total)
	}
}

func TestSubsequentTypeChargesOverrideCost(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Onboard(context.Background(), onboardReq("heloc")); err != nil {
		t.Fatalf("heloc onboard failed: %v", err)
	}

	if _, err := f.svc.Onboard(context.Background(), onboardReq("mortgage")); err != nil {
		t.Fatalf("mortgage onboard failed: %v", err)
	}
	if total := f.sink.executed[1].Total(); total != 250 {
		t.Fatalf("subsequent classification must charge 250, got %d", total)
	}
}

func TestRetryWinsOverSubsequent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Onboard(context.Background(), onboardReq("heloc")); err != nil {
		t.Fatalf("heloc onboard failed: %v", err)
	}
	if _, err := f.svc.Onboard(context.Background(), onboardReq("mortgage")); err != nil {
		t.Fatalf("mortgage onboard failed: %v", err)
	}
	f.verify(t, false, "")

	if _, err := f.svc.Onboard(context.Background(), onboardReq("mortgage")); err != nil {
		t.Fatalf("retry onboard failed: %v", err)
	}
	last := f.sink.executed[len(f.sink.executed)-1]
	if last.Total() != 20 {
		t.Fatalf("retry must win over subsequent pricing, charged %d", last.Total())
	}
}

func TestOnboardPaymentFailureCommitsNothing(t *testing.T) {
	f := newFixture(t)
	f.sink.err = errors.New("insufficient funds")
	_, err := f.svc.Onboard(context.Background(), onboardReq("mortgage"))
	if !contracts.IsKind(err, contracts.KindUpstreamFailure) {
		t.Fatalf("expected upstream failure, got %v", err)
	}
	_, err = f.svc.GetAttribute(model.AssetIdentifier{AssetUUID: assetUUID}, "mortgage")
	if !contracts.IsKind(err, contracts.KindNotFound) {
		t.Fatalf("a failed payment must not create an attribute, got %v", err)
	}
}

func TestOnboardEnforcesRecordPolicy(t *testing.T) {
	store := &memoryAttributeStore{}
	f := newFixture(t)
	svc := NewService(
		store, f.registry, f.ownership, f.sink,
		fakeRecordPolicy{required: true}, fakeRecordOracle{hasRecords: false}, adminAddr, nil,
	)
	if err := svc.Bootstrap(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	_, err := svc.Onboard(context.Background(), onboardReq("mortgage"))
	if !contracts.IsKind(err, contracts.KindIllegalStateTransition) {
		t.Fatalf("expected illegal state for a recordless asset, got %v", err)
	}
}

func TestVerifyTransitionsAndDefaultMessage(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Onboard(context.Background(), onboardReq("mortgage")); err != nil {
		t.Fatalf("onboard failed: %v", err)
	}

	attr := f.verify(t, true, "")
	if attr.OnboardingStatus != model.StatusApproved {
		t.Fatalf("expected approved, got %s", attr.OnboardingStatus)
	}
	result := attr.LatestVerificationResult
	if result == nil || !result.Success || result.Message != defaultVerificationMessage {
		t.Fatalf("unexpected verification result: %+v", result)
	}
}

func TestVerifyRejectsNonPendingStates(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Onboard(context.Background(), onboardReq("mortgage")); err != nil {
		t.Fatalf("onboard failed: %v", err)
	}
	f.verify(t, true, "done")

	_, err := f.svc.Verify(context.Background(), model.VerifyRequest{
		CallerAddress: verifierAddr,
		Identifier:    model.AssetIdentifier{AssetUUID: assetUUID},
		AssetType:     "mortgage",
		Success:       true,
	})
	if !contracts.IsKind(err, contracts.KindIllegalStateTransition) {
		t.Fatalf("expected illegal state for an approved attribute, got %v", err)
	}
}

func TestVerifyRejectsWrongCaller(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Onboard(context.Background(), onboardReq("mortgage")); err != nil {
		t.Fatalf("onboard failed: %v", err)
	}
	_, err := f.svc.Verify(context.Background(), model.VerifyRequest{
		CallerAddress: "stranger",
		Identifier:    model.AssetIdentifier{AssetUUID: assetUUID},
		AssetType:     "mortgage",
		Success:       true,
	})
	if !contracts.IsKind(err, contracts.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestVerifyReplacesVerifierAccessDefinition(t *testing.T) {
	f := newFixture(t)
	req := onboardReq("mortgage")
	req.AccessRoutes = []model.AccessRoute{{Route: "grpc://owner.example.com"}}
	if _, err := f.svc.Onboard(context.Background(), req); err != nil {
		t.Fatalf("onboard failed: %v", err)
	}

	attr, err := f.svc.Verify(context.Background(), model.VerifyRequest{
		CallerAddress: verifierAddr,
		Identifier:    model.AssetIdentifier{AssetUUID: assetUUID},
		AssetType:     "mortgage",
		Success:       true,
		AccessRoutes:  []model.AccessRoute{{Route: "grpc://verifier.example.com"}},
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if len(attr.AccessDefinitions) != 2 {
		t.Fatalf("expected requestor and verifier definitions, got %+v", attr.AccessDefinitions)
	}
	verifierDef, ok := attr.FindAccessDefinition(verifierAddr)
	if !ok || verifierDef.DefinitionType != model.AccessTypeVerifier {
		t.Fatalf("verifier definition missing: %+v", attr.AccessDefinitions)
	}
}

func TestUpdateAccessRoutesFullReplace(t *testing.T) {
	f := newFixture(t)
	req := onboardReq("mortgage")
	req.AccessRoutes = []model.AccessRoute{{Route: "grpc://old.example.com"}, {Route: "grpc://old2.example.com"}}
	if _, err := f.svc.Onboard(context.Background(), req); err != nil {
		t.Fatalf("onboard failed: %v", err)
	}

	attr, err := f.svc.UpdateAccessRoutes(model.UpdateAccessRoutesRequest{
		CallerAddress: ownerAddr,
		Identifier:    model.AssetIdentifier{AssetUUID: assetUUID},
		AssetType:     "mortgage",
		OwnerAddress:  ownerAddr,
		AccessRoutes:  []model.AccessRoute{{Route: "grpc://new.example.com"}},
	})
	if err != nil {
		t.Fatalf("update routes failed: %v", err)
	}
	def, ok := attr.FindAccessDefinition(ownerAddr)
	if !ok {
		t.Fatalf("owner definition missing: %+v", attr.AccessDefinitions)
	}
	if len(def.AccessRoutes) != 1 || def.AccessRoutes[0].Route != "grpc://new.example.com" {
		t.Fatalf("routes must be replaced in full: %+v", def.AccessRoutes)
	}
}

func TestUpdateAccessRoutesRejectsAllBlankRoutes(t *testing.T) {
	f := newFixture(t)
	req := onboardReq("mortgage")
	req.AccessRoutes = []model.AccessRoute{{Route: "grpc://old.example.com"}}
	if _, err := f.svc.Onboard(context.Background(), req); err != nil {
		t.Fatalf("onboard failed: %v", err)
	}

	_, err := f.svc.UpdateAccessRoutes(model.UpdateAccessRoutesRequest{
		CallerAddress: ownerAddr,
		Identifier:    model.AssetIdentifier{AssetUUID: assetUUID},
		AssetType:     "mortgage",
		OwnerAddress:  ownerAddr,
		AccessRoutes:  []model.AccessRoute{{Route: "   "}, {Route: ""}},
	})
	if !contracts.IsKind(err, contracts.KindInvalidConfiguration) {
		t.Fatalf("expected invalid configuration for all-blank routes, got %v", err)
	}

	attr, err := f.svc.GetAttribute(model.AssetIdentifier{AssetUUID: assetUUID}, "mortgage")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	def, ok := attr.FindAccessDefinition(ownerAddr)
	if !ok || len(def.AccessRoutes) != 1 || def.AccessRoutes[0].Route != "grpc://old.example.com" {
		t.Fatalf("a rejected update must leave routes untouched: %+v", def.AccessRoutes)
	}
}

func TestUpdateAccessRoutesAuthorization(t *testing.T) {
	f := newFixture(t)
	req := onboardReq("mortgage")
	req.AccessRoutes = []model.AccessRoute{{Route: "grpc://old.example.com"}}
	if _, err := f.svc.Onboard(context.Background(), req); err != nil {
		t.Fatalf("onboard failed: %v", err)
	}

	_, err := f.svc.UpdateAccessRoutes(model.UpdateAccessRoutesRequest{
		CallerAddress: "stranger",
		Identifier:    model.AssetIdentifier{AssetUUID: assetUUID},
		AssetType:     "mortgage",
		OwnerAddress:  ownerAddr,
	})
	if !contracts.IsKind(err, contracts.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	// Admin may act on behalf of any owner.
	if _, err := f.svc.UpdateAccessRoutes(model.UpdateAccessRoutesRequest{
		CallerAddress: adminAddr,
		Identifier:    model.AssetIdentifier{AssetUUID: assetUUID},
		AssetType:     "mortgage",
		OwnerAddress:  ownerAddr,
		AccessRoutes:  []model.AccessRoute{{Route: "grpc://admin.example.com"}},
	}); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}

	_, err = f.svc.UpdateAccessRoutes(model.UpdateAccessRoutesRequest{
		CallerAddress: verifierAddr,
		Identifier:    model.AssetIdentifier{AssetUUID: assetUUID},
		AssetType:     "mortgage",
		OwnerAddress:  verifierAddr,
	})
	if !contracts.IsKind(err, contracts.KindNotFound) {
		t.Fatalf("expected not found when the owner has no definition, got %v", err)
	}
}

func TestListAttributesAndGetAttributeByScopeAddress(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Onboard(context.Background(), onboardReq("heloc")); err != nil {
		t.Fatalf("heloc onboard failed: %v", err)
	}
	if _, err := f.svc.Onboard(context.Background(), onboardReq("mortgage")); err != nil {
		t.Fatalf("mortgage onboard failed: %v", err)
	}

	scopeAddress, _ := policy.ScopeAddressFromUUID(assetUUID)
	attrs, err := f.svc.ListAttributes(model.AssetIdentifier{ScopeAddress: scopeAddress})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(attrs) != 2 || attrs[0].AssetType != "heloc" || attrs[1].AssetType != "mortgage" {
		t.Fatalf("unexpected attribute list: %+v", attrs)
	}

	attr, err := f.svc.GetAttribute(model.AssetIdentifier{ScopeAddress: scopeAddress}, "heloc")
	if err != nil {
		t.Fatalf("get by scope address failed: %v", err)
	}
	if attr.AssetUUID != assetUUID {
		t.Fatalf("identity resolution broken: %+v", attr)
	}
}

func TestPreviewPaymentHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	detail, err := f.svc.PreviewPayment(onboardReq("mortgage"))
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if detail.Total() != 1000 {
		t.Fatalf("preview must price the first-time cost, got %d", detail.Total())
	}
	if len(f.sink.executed) != 0 {
		t.Fatal("preview must not execute payments")
	}
	_, err = f.svc.GetAttribute(model.AssetIdentifier{AssetUUID: assetUUID}, "mortgage")
	if !contracts.IsKind(err, contracts.KindNotFound) {
		t.Fatalf("preview must not create attributes, got %v", err)
	}
}

func TestOnboardPersistFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.store.persistErr = errors.New("disk full")
	_, err := f.svc.Onboard(context.Background(), onboardReq("mortgage"))
	if err == nil || !errors.Is(err, f.store.persistErr) {
		t.Fatalf("expected the persist error to surface, got %v", err)
	}
	f.store.persistErr = nil
	_, err = f.svc.GetAttribute(model.AssetIdentifier{AssetUUID: assetUUID}, "mortgage")
	if !contracts.IsKind(err, contracts.KindNotFound) {
		t.Fatalf("a failed persist must leave memory untouched, got %v", err)
	}
}
