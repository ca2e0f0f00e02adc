package classification

import (
	"errors"
	"io/fs"
	"os"

	"asset-classify/go-engine/internal/domains/classification/model"
	"asset-classify/go-engine/internal/platform/snapshotio"
)

var (
	ErrInvalidScopeKey  = errors.New("scope attribute carries an invalid scope address key")
	ErrInvalidAttribute = errors.New("scope attribute snapshot entry is invalid")
)

// AttributeSet holds every classification attribute of one asset instance,
// keyed by normalized asset type.
type AttributeSet map[string]model.AssetScopeAttribute

type persistedAttributeState struct {
	Version    int                     `json:"version"`
	Attributes map[string]AttributeSet `json:"attributes"`
}

// SnapshotStore persists scope attributes keyed by scope address. Like the
// registry store it runs purely in memory when no path is configured.
type SnapshotStore struct {
	path string
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

func (s *SnapshotStore) Configure(path string) {
	s.path = snapshotio.NormalizePath(path)
}

func (s *SnapshotStore) Bootstrap() (map[string]AttributeSet, error) {
	if !snapshotio.IsConfigured(s.path) {
		return map[string]AttributeSet{}, nil
	}
	var state persistedAttributeState
	if err := snapshotio.ReadJSON(s.path, &state); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			attrs := map[string]AttributeSet{}
			if err := s.Persist(attrs); err != nil {
				return nil, err
			}
			return attrs, nil
		}
		return nil, err
	}
	if state.Version != 1 {
		return nil, errors.New("scope attribute persistence payload is invalid")
	}
	return NormalizeAttributeSnapshot(state.Attributes)
}

func (s *SnapshotStore) Persist(attributes map[string]AttributeSet) error {
	if !snapshotio.IsConfigured(s.path) {
		return nil
	}
	normalized, err := NormalizeAttributeSnapshot(attributes)
	if err != nil {
		return err
	}
	state := persistedAttributeState{
		Version:    1,
		Attributes: normalized,
	}
	return snapshotio.WriteJSON(s.path, state)
}

func (s *SnapshotStore) Wipe() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// NormalizeAttributeSnapshot clones the attribute map and checks every entry
// is keyed consistently and carries a valid onboarding status.
func NormalizeAttributeSnapshot(attributes map[string]AttributeSet) (map[string]AttributeSet, error) {
	normalized := make(map[string]AttributeSet, len(attributes))
	for scopeAddress, set := range attributes {
		if scopeAddress == "" {
			return nil, ErrInvalidScopeKey
		}
		normalizedSet := make(AttributeSet, len(set))
		for assetType, attr := range set {
			if assetType == "" || attr.AssetType != assetType {
				return nil, ErrInvalidAttribute
			}
			if attr.ScopeAddress != scopeAddress || !attr.OnboardingStatus.Valid() {
				return nil, ErrInvalidAttribute
			}
			normalizedSet[assetType] = attr.Clone()
		}
		normalized[scopeAddress] = normalizedSet
	}
	return normalized, nil
}
