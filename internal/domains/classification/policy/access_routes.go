package policy

import (
	"strings"

	"asset-classify/go-engine/internal/domains/classification/model"
)

// CleanAccessRoutes trims whitespace, drops blank routes, and removes exact
// duplicates while keeping first-seen order. Returns nil when nothing
// usable remains so callers can distinguish "no routes" cleanly.
func CleanAccessRoutes(routes []model.AccessRoute) []model.AccessRoute {
	if len(routes) == 0 {
		return nil
	}
	seen := make(map[model.AccessRoute]struct{}, len(routes))
	out := make([]model.AccessRoute, 0, len(routes))
	for _, route := range routes {
		cleaned := model.AccessRoute{
			Route: strings.TrimSpace(route.Route),
			Name:  strings.TrimSpace(route.Name),
		}
		if cleaned.Route == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ReplaceAccessDefinition swaps out the definition owned by ownerAddress, or
// appends a new one when that owner has none yet. The replace is whole-value:
// prior routes from the same owner never survive.
func ReplaceAccessDefinition(defs []model.AccessDefinition, replacement model.AccessDefinition) []model.AccessDefinition {
	out := make([]model.AccessDefinition, 0, len(defs)+1)
	replaced := false
	for _, def := range defs {
		if def.OwnerAddress == replacement.OwnerAddress {
			out = append(out, replacement)
			replaced = true
			continue
		}
		out = append(out, def)
	}
	if !replaced {
		out = append(out, replacement)
	}
	return out
}
