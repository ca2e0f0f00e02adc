package usecase

import (
	"sort"
	"sync"

	"asset-classify/go-engine/internal/domains/contracts"
	"asset-classify/go-engine/internal/domains/contracts/ports"
	"asset-classify/go-engine/internal/domains/registry/model"
	"asset-classify/go-engine/internal/domains/registry/policy"
)

// RegistryStateStore persists the definition map between runs.
type RegistryStateStore interface {
	Configure(path string)
	Bootstrap() (map[string]model.AssetDefinition, error)
	Persist(definitions map[string]model.AssetDefinition) error
}

// Service is the asset definition registry. Mutations are admin-gated,
// validated in full before anything changes, and committed to memory only
// after the snapshot write succeeds.
type Service struct {
	state           RegistryStateStore
	adminAddress    string
	allowedDenoms   []string
	validateAddress ports.AddressValidator
	recordError     func(string, error)

	mu          sync.RWMutex
	definitions map[string]model.AssetDefinition
}

func NewService(
	state RegistryStateStore,
	adminAddress string,
	allowedDenoms []string,
	validateAddress ports.AddressValidator,
	recordError func(string, error),
) *Service {
	return &Service{
		state:           state,
		adminAddress:    adminAddress,
		allowedDenoms:   allowedDenoms,
		validateAddress: validateAddress,
		recordError:     recordError,
		definitions:     map[string]model.AssetDefinition{},
	}
}

func (s *Service) Configure(path string) {
	s.state.Configure(path)
}

func (s *Service) Bootstrap() error {
	defs, err := s.state.Bootstrap()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.definitions = defs
	s.mu.Unlock()
	return nil
}

func (s *Service) AddDefinition(callerAddress string, def model.AssetDefinition) error {
	if err := s.requireAdmin(callerAddress); err != nil {
		return err
	}
	def = normalizeDefinition(def)
	if err := policy.ValidateDefinition(def, s.allowedDenoms, s.validateAddress); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.definitions[def.AssetType]; exists {
		return contracts.Duplicatef("asset type %q is already registered", def.AssetType)
	}
	return s.commitLocked(def.AssetType, def)
}

func (s *Service) UpdateDefinition(callerAddress string, def model.AssetDefinition) error {
	if err := s.requireAdmin(callerAddress); err != nil {
		return err
	}
	def = normalizeDefinition(def)
	if err := policy.ValidateDefinition(def, s.allowedDenoms, s.validateAddress); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.definitions[def.AssetType]; !exists {
		return contracts.NotFoundf("asset type %q is not registered", def.AssetType)
	}
	return s.commitLocked(def.AssetType, def)
}

func (s *Service) GetDefinition(assetType string) (model.AssetDefinition, error) {
	key := model.NormalizeAssetType(assetType)
	s.mu.RLock()
	def, ok := s.definitions[key]
	s.mu.RUnlock()
	if !ok {
		return model.AssetDefinition{}, contracts.NotFoundf("asset type %q is not registered", key)
	}
	return def.Clone(), nil
}

func (s *Service) ListDefinitions() []model.AssetDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AssetDefinition, 0, len(s.definitions))
	for _, def := range s.definitions {
		out = append(out, def.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetType < out[j].AssetType })
	return out
}

// SetEnabled toggles onboarding for an asset type with compare-and-swap
// semantics: the caller states the enabled value it read, and a mismatch is
// rejected as stale rather than silently overwritten.
func (s *Service) SetEnabled(callerAddress, assetType string, expectedCurrent, newValue bool) error {
	if err := s.requireAdmin(callerAddress); err != nil {
		return err
	}
	key := model.NormalizeAssetType(assetType)

	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.definitions[key]
	if !ok {
		return contracts.NotFoundf("asset type %q is not registered", key)
	}
	if def.Enabled != expectedCurrent {
		return contracts.StaleStatef(
			"asset type %q is currently enabled=%t, not enabled=%t as the caller read",
			key, def.Enabled, expectedCurrent,
		)
	}
	updated := def.Clone()
	updated.Enabled = newValue
	return s.commitLocked(key, updated)
}

func (s *Service) AddVerifier(callerAddress, assetType string, verifier model.VerifierDetail) error {
	if err := s.requireAdmin(callerAddress); err != nil {
		return err
	}
	if err := policy.ValidateVerifier(verifier, s.allowedDenoms, s.validateAddress); err != nil {
		return err
	}
	key := model.NormalizeAssetType(assetType)

	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.definitions[key]
	if !ok {
		return contracts.NotFoundf("asset type %q is not registered", key)
	}
	if _, exists := def.FindVerifier(verifier.Address); exists {
		return contracts.Duplicatef("verifier %q already exists on asset type %q", verifier.Address, key)
	}
	updated := def.Clone()
	updated.Verifiers = append(updated.Verifiers, verifier.Clone())
	return s.commitLocked(key, updated)
}

func (s *Service) UpdateVerifier(callerAddress, assetType string, verifier model.VerifierDetail) error {
	if err := s.requireAdmin(callerAddress); err != nil {
		return err
	}
	if err := policy.ValidateVerifier(verifier, s.allowedDenoms, s.validateAddress); err != nil {
		return err
	}
	key := model.NormalizeAssetType(assetType)

	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.definitions[key]
	if !ok {
		return contracts.NotFoundf("asset type %q is not registered", key)
	}
	updated := def.Clone()
	replaced := false
	for i := range updated.Verifiers {
		if updated.Verifiers[i].Address == verifier.Address {
			updated.Verifiers[i] = verifier.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		return contracts.NotFoundf("verifier %q does not exist on asset type %q", verifier.Address, key)
	}
	return s.commitLocked(key, updated)
}

func (s *Service) DeleteDefinition(callerAddress, assetType string) error {
	if err := s.requireAdmin(callerAddress); err != nil {
		return err
	}
	key := model.NormalizeAssetType(assetType)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.definitions[key]; !ok {
		return contracts.NotFoundf("asset type %q is not registered", key)
	}
	next := s.cloneDefinitionsLocked()
	delete(next, key)
	if err := s.state.Persist(next); err != nil {
		if s.recordError != nil {
			s.recordError("storage", err)
		}
		return err
	}
	s.definitions = next
	return nil
}

// commitLocked persists the registry with one definition replaced and swaps
// the in-memory map only on success. Callers hold the write lock.
func (s *Service) commitLocked(key string, def model.AssetDefinition) error {
	next := s.cloneDefinitionsLocked()
	next[key] = def
	if err := s.state.Persist(next); err != nil {
		if s.recordError != nil {
			s.recordError("storage", err)
		}
		return err
	}
	s.definitions = next
	return nil
}

func (s *Service) cloneDefinitionsLocked() map[string]model.AssetDefinition {
	next := make(map[string]model.AssetDefinition, len(s.definitions))
	for k, v := range s.definitions {
		next[k] = v
	}
	return next
}

func (s *Service) requireAdmin(callerAddress string) error {
	if callerAddress != s.adminAddress {
		return contracts.Unauthorizedf("caller %q is not the registry admin", callerAddress)
	}
	return nil
}

func normalizeDefinition(def model.AssetDefinition) model.AssetDefinition {
	out := def.Clone()
	out.AssetType = model.NormalizeAssetType(def.AssetType)
	return out
}
