package policy

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"asset-classify/go-engine/internal/domains/classification/model"
)

// Scope addresses are a deterministic re-encoding of the asset UUID: a fixed
// human-readable prefix followed by the base58 encoding of a key-type byte
// and the 16 raw UUID bytes. The mapping is bijective, so either identity
// form can be recovered from the other.
const (
	scopeAddressPrefix = "scope1"
	scopeKeyByte       = 0x00
)

// ScopeAddressFromUUID derives the scope address for an asset UUID.
func ScopeAddressFromUUID(assetUUID string) (string, error) {
	parsed, err := uuid.Parse(assetUUID)
	if err != nil {
		return "", fmt.Errorf("invalid asset uuid %q: %w", assetUUID, err)
	}
	payload := make([]byte, 0, 17)
	payload = append(payload, scopeKeyByte)
	payload = append(payload, parsed[:]...)
	return scopeAddressPrefix + base58.Encode(payload), nil
}

// UUIDFromScopeAddress inverts ScopeAddressFromUUID.
func UUIDFromScopeAddress(scopeAddress string) (string, error) {
	if len(scopeAddress) <= len(scopeAddressPrefix) || scopeAddress[:len(scopeAddressPrefix)] != scopeAddressPrefix {
		return "", fmt.Errorf("scope address %q does not carry the %q prefix", scopeAddress, scopeAddressPrefix)
	}
	payload, err := base58.Decode(scopeAddress[len(scopeAddressPrefix):])
	if err != nil {
		return "", fmt.Errorf("scope address %q is not base58: %w", scopeAddress, err)
	}
	if len(payload) != 17 || payload[0] != scopeKeyByte {
		return "", fmt.Errorf("scope address %q carries a malformed payload", scopeAddress)
	}
	parsed, err := uuid.FromBytes(payload[1:])
	if err != nil {
		return "", fmt.Errorf("scope address %q does not decode to a uuid: %w", scopeAddress, err)
	}
	return parsed.String(), nil
}

// ResolveIdentifier fills in whichever identity form the caller omitted and
// returns both, so stores can key by either one.
func ResolveIdentifier(id model.AssetIdentifier) (assetUUID, scopeAddress string, err error) {
	if err := id.Validate(); err != nil {
		return "", "", err
	}
	if id.AssetUUID != "" {
		scopeAddress, err = ScopeAddressFromUUID(id.AssetUUID)
		if err != nil {
			return "", "", err
		}
		parsed, _ := uuid.Parse(id.AssetUUID)
		return parsed.String(), scopeAddress, nil
	}
	assetUUID, err = UUIDFromScopeAddress(id.ScopeAddress)
	if err != nil {
		return "", "", err
	}
	return assetUUID, id.ScopeAddress, nil
}
