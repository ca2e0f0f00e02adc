package rpc

import (
	"context"
	"encoding/json"
	"time"

	classificationmodel "asset-classify/go-engine/internal/domains/classification/model"
	registrymodel "asset-classify/go-engine/internal/domains/registry/model"
)

// Onboard and verify consult external collaborators; bound them rather than
// letting a stuck oracle hold the connection open.
const classifyCallTimeout = 30 * time.Second

type attributeGetParams struct {
	Identifier classificationmodel.AssetIdentifier `json:"identifier"`
	AssetType  string                              `json:"asset_type"`
}

type attributeListParams struct {
	Identifier classificationmodel.AssetIdentifier `json:"identifier"`
}

func (s *Server) dispatchClassifyRPC(method string, rawParams json.RawMessage) (any, *rpcError, bool) {
	switch method {
	case "classify.onboard":
		var req classificationmodel.OnboardRequest
		if err := decodeObjectParams(rawParams, &req); err != nil {
			return nil, rpcInvalidParams(), true
		}
		ctx, cancel := context.WithTimeout(context.Background(), classifyCallTimeout)
		defer cancel()
		attr, err := s.service.Onboard(ctx, req)
		assetType := registrymodel.NormalizeAssetType(req.AssetType)
		if err != nil {
			s.observeOnboarding(assetType, "error")
			return nil, mapServiceError(err), true
		}
		s.observeOnboarding(assetType, "ok")
		return attr, nil, true

	case "classify.verify":
		var req classificationmodel.VerifyRequest
		if err := decodeObjectParams(rawParams, &req); err != nil {
			return nil, rpcInvalidParams(), true
		}
		ctx, cancel := context.WithTimeout(context.Background(), classifyCallTimeout)
		defer cancel()
		attr, err := s.service.Verify(ctx, req)
		if err != nil {
			return nil, mapServiceError(err), true
		}
		if s.metrics != nil {
			s.metrics.ObserveVerification(attr.AssetType, req.Success)
		}
		return attr, nil, true

	case "classify.routes.update":
		var req classificationmodel.UpdateAccessRoutesRequest
		if err := decodeObjectParams(rawParams, &req); err != nil {
			return nil, rpcInvalidParams(), true
		}
		attr, err := s.service.UpdateAccessRoutes(req)
		if err != nil {
			return nil, mapServiceError(err), true
		}
		return attr, nil, true

	case "classify.attribute.get":
		var params attributeGetParams
		if err := decodeObjectParams(rawParams, &params); err != nil || params.AssetType == "" {
			return nil, rpcInvalidParams(), true
		}
		attr, err := s.service.GetAttribute(params.Identifier, params.AssetType)
		if err != nil {
			return nil, mapServiceError(err), true
		}
		return attr, nil, true

	case "classify.attributes.list":
		var params attributeListParams
		if err := decodeObjectParams(rawParams, &params); err != nil {
			return nil, rpcInvalidParams(), true
		}
		attrs, err := s.service.ListAttributes(params.Identifier)
		if err != nil {
			return nil, mapServiceError(err), true
		}
		return attrs, nil, true

	case "classify.fees.preview":
		var req classificationmodel.OnboardRequest
		if err := decodeObjectParams(rawParams, &req); err != nil {
			return nil, rpcInvalidParams(), true
		}
		detail, err := s.service.PreviewPayment(req)
		if err != nil {
			return nil, mapServiceError(err), true
		}
		return detail, nil, true

	default:
		return nil, nil, false
	}
}

func (s *Server) observeOnboarding(assetType, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveOnboarding(assetType, outcome)
	}
}
