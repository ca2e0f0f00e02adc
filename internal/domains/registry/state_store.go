package registry

import (
	"errors"
	"io/fs"
	"os"

	"asset-classify/go-engine/internal/domains/registry/model"
	"asset-classify/go-engine/internal/platform/snapshotio"
)

var ErrInvalidAssetType = errors.New("asset definition carries an invalid asset type")

type persistedRegistryState struct {
	Version     int                              `json:"version"`
	Definitions map[string]model.AssetDefinition `json:"definitions"`
}

// SnapshotStore persists the asset definition registry as a JSON snapshot.
// With no path configured it is a pure in-memory store, which is how tests
// run it.
type SnapshotStore struct {
	path string
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

func (s *SnapshotStore) Configure(path string) {
	s.path = snapshotio.NormalizePath(path)
}

func (s *SnapshotStore) Bootstrap() (map[string]model.AssetDefinition, error) {
	if !snapshotio.IsConfigured(s.path) {
		return map[string]model.AssetDefinition{}, nil
	}
	var state persistedRegistryState
	if err := snapshotio.ReadJSON(s.path, &state); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			defs := map[string]model.AssetDefinition{}
			if err := s.Persist(defs); err != nil {
				return nil, err
			}
			return defs, nil
		}
		return nil, err
	}
	if state.Version != 1 {
		return nil, errors.New("registry state persistence payload is invalid")
	}
	return NormalizeRegistrySnapshot(state.Definitions)
}

func (s *SnapshotStore) Persist(definitions map[string]model.AssetDefinition) error {
	if !snapshotio.IsConfigured(s.path) {
		return nil
	}
	normalized, err := NormalizeRegistrySnapshot(definitions)
	if err != nil {
		return err
	}
	state := persistedRegistryState{
		Version:     1,
		Definitions: normalized,
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

// NormalizeRegistrySnapshot clones the definition map and checks that every
// entry is keyed by its own normalized asset type.
func NormalizeRegistrySnapshot(definitions map[string]model.AssetDefinition) (map[string]model.AssetDefinition, error) {
	normalized := make(map[string]model.AssetDefinition, len(definitions))
	for key, def := range definitions {
		assetType := model.NormalizeAssetType(def.AssetType)
		if assetType == "" || key != assetType {
			return nil, ErrInvalidAssetType
		}
		cloned := def.Clone()
		cloned.AssetType = assetType
		normalized[assetType] = cloned
	}
	return normalized, nil
}
