package rpc

import (
	"encoding/json"

	registrymodel "asset-classify/go-engine/internal/domains/registry/model"
)

type definitionParams struct {
	CallerAddress string                        `json:"caller_address"`
	Definition    registrymodel.AssetDefinition `json:"definition"`
}

type verifierParams struct {
	CallerAddress string                       `json:"caller_address"`
	AssetType     string                       `json:"asset_type"`
	Verifier      registrymodel.VerifierDetail `json:"verifier"`
}

type toggleParams struct {
	CallerAddress   string `json:"caller_address"`
	AssetType       string `json:"asset_type"`
	ExpectedCurrent bool   `json:"expected_current"`
	NewValue        bool   `json:"new_value"`
}

type assetTypeParams struct {
	CallerAddress string `json:"caller_address,omitempty"`
	AssetType     string `json:"asset_type"`
}

func (s *Server) dispatchRegistryRPC(method string, rawParams json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "registry.add":
		var params definitionParams
		if err := decodeObjectParams(rawParams, &params); err != nil {
			return nil, rpcInvalidParams(), true
		}
		if err := s.service.AddDefinition(params.CallerAddress, params.Definition); err != nil {
			return nil, mapServiceError(err), true
		}
		s.observeRegistryChange("add")
		return map[string]string{"asset_type": registrymodel.NormalizeAssetType(params.Definition.AssetType)}, nil, true

	case "registry.update":
		var params definitionParams
		if err := decodeObjectParams(rawParams, &params); err != nil {
			return nil, rpcInvalidParams(), true
		}
		if err := s.service.UpdateDefinition(params.CallerAddress, params.Definition); err != nil {
			return nil, mapServiceError(err), true
		}
		s.observeRegistryChange("update")
		return map[string]string{"asset_type": registrymodel.NormalizeAssetType(params.Definition.AssetType)}, nil, true

	case "registry.get":
		assetType, err := decodeSingleStringParam(rawParams)
		if err != nil {
			var params assetTypeParams
			if err := decodeObjectParams(rawParams, &params); err != nil || params.AssetType == "" {
				return nil, rpcInvalidParams(), true
			}
			assetType = params.AssetType
		}
		def, svcErr := s.service.GetDefinition(assetType)
		if svcErr != nil {
			return nil, mapServiceError(svcErr), true
		}
		return def, nil, true

	case "registry.list":
		return s.service.ListDefinitions(), nil, true

	case "registry.toggle":
		var params toggleParams
		if err := decodeObjectParams(rawParams, &params); err != nil {
			return nil, rpcInvalidParams(), true
		}
		if err := s.service.SetEnabled(params.CallerAddress, params.AssetType, params.ExpectedCurrent, params.NewValue); err != nil {
			return nil, mapServiceError(err), true
		}
		s.observeRegistryChange("toggle")
		return map[string]bool{"enabled": params.NewValue}, nil, true

	case "registry.verifier.add":
		var params verifierParams
		if err := decodeObjectParams(rawParams, &params); err != nil {
			return nil, rpcInvalidParams(), true
		}
		if err := s.service.AddVerifier(params.CallerAddress, params.AssetType, params.Verifier); err != nil {
			return nil, mapServiceError(err), true
		}
		s.observeRegistryChange("verifier.add")
		return map[string]string{"verifier_address": params.Verifier.Address}, nil, true

	case "registry.verifier.update":
		var params verifierParams
		if err := decodeObjectParams(rawParams, &params); err != nil {
			return nil, rpcInvalidParams(), true
		}
		if err := s.service.UpdateVerifier(params.CallerAddress, params.AssetType, params.Verifier); err != nil {
			return nil, mapServiceError(err), true
		}
		s.observeRegistryChange("verifier.update")
		return map[string]string{"verifier_address": params.Verifier.Address}, nil, true

	case "registry.delete":
		var params assetTypeParams
		if err := decodeObjectParams(rawParams, &params); err != nil || params.AssetType == "" {
			return nil, rpcInvalidParams(), true
		}
		if err := s.service.DeleteDefinition(params.CallerAddress, params.AssetType); err != nil {
			return nil, mapServiceError(err), true
		}
		s.observeRegistryChange("delete")
		return map[string]string{"asset_type": registrymodel.NormalizeAssetType(params.AssetType)}, nil, true

	default:
		return nil, nil, false
	}
}

func (s *Server) observeRegistryChange(operation string) {
	if s.metrics != nil {
		s.metrics.ObserveRegistryChange(operation)
	}
}
