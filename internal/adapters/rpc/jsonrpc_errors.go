package rpc

import (
	"errors"

	"asset-classify/go-engine/internal/domains/contracts"
)

func rpcInvalidParams() *rpcError {
	return &rpcError{Code: -32602, Message: "invalid params"}
}

// mapServiceError translates the engine's error kinds to stable RPC codes so
// callers can branch without parsing messages.
func mapServiceError(err error) *rpcError {
	var cfgErr *contracts.InvalidConfigurationError
	if errors.As(err, &cfgErr) {
		return &rpcError{Code: -32042, Message: err.Error(), Data: cfgErr.Problems}
	}
	switch contracts.KindOf(err) {
	case contracts.KindNotFound:
		return &rpcError{Code: -32040, Message: err.Error()}
	case contracts.KindDuplicate:
		return &rpcError{Code: -32041, Message: err.Error()}
	case contracts.KindInvalidConfiguration:
		return &rpcError{Code: -32042, Message: err.Error()}
	case contracts.KindUnauthorized:
		return &rpcError{Code: -32043, Message: err.Error()}
	case contracts.KindIllegalStateTransition:
		return &rpcError{Code: -32044, Message: err.Error()}
	case contracts.KindStaleState:
		return &rpcError{Code: -32045, Message: err.Error()}
	case contracts.KindUpstreamFailure:
		return &rpcError{Code: -32046, Message: err.Error()}
	default:
		return &rpcError{Code: -32000, Message: err.Error()}
	}
}
