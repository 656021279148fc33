package adaptive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lgctx/lgctx/internal/pipeline"
)

// clipboardProvider is universally compatible with every integration
// mode-set; it is never filtered and never normalized.
const clipboardProvider = "clipboard"

// technicalSuffixes lists provider-id suffixes stripped to derive a "base
// id" for condition:provider matching (spec.md §4.2). Only one suffix is
// ever stripped, since provider ids are not expected to stack them.
var technicalSuffixes = []string{".cli", ".ext", ".api"}

// NormalizeProviderID strips a known technical suffix from a full provider
// id, yielding the base id condition:provider atoms match against.
func NormalizeProviderID(fullID string) string {
	for _, suffix := range technicalSuffixes {
		if strings.HasSuffix(fullID, suffix) {
			return strings.TrimSuffix(fullID, suffix)
		}
	}
	return fullID
}

// Validate checks that model has exactly one integration mode-set, per
// spec.md §4.2. contextName is used only for diagnostics.
func Validate(model Model, contextName string) error {
	sets := model.IntegrationModeSets()
	if len(sets) > 1 {
		ids := make([]string, len(sets))
		for i, s := range sets {
			ids[i] = s.ID
		}
		sort.Strings(ids)
		return pipeline.NewUserError(pipeline.KindMultipleIntegrationModeSets,
			fmt.Sprintf("context %q has multiple integration mode-sets: %s", contextName, strings.Join(ids, ", ")), nil)
	}
	if len(sets) == 0 {
		return pipeline.NewUserError(pipeline.KindNoIntegrationModeSet,
			fmt.Sprintf("context %q has no integration mode-set", contextName), nil)
	}
	return nil
}

// ValidateProviderSupport validates that the model's integration mode-set
// (after Validate has already confirmed there is exactly one) has at least
// one mode supporting fullProviderID, and returns the model filtered to
// that provider. The clipboard provider is universal: it matches every
// integration mode-set and is never filtered.
func ValidateProviderSupport(model Model, fullProviderID, contextName string) (Model, error) {
	if fullProviderID == clipboardProvider {
		return model, nil
	}

	sets := model.IntegrationModeSets()
	if len(sets) != 1 {
		if err := Validate(model, contextName); err != nil {
			return Model{}, err
		}
		// Validate should have already returned an error for != 1; this is
		// unreachable in practice but keeps the function total.
		return Model{}, pipeline.NewUserError(pipeline.KindNoIntegrationModeSet,
			fmt.Sprintf("context %q has no integration mode-set", contextName), nil)
	}
	integration := sets[0]

	supported := integration.getSupportedProviders()
	if !supported[fullProviderID] {
		return Model{}, providerNotSupportedErr(fullProviderID, contextName, supported)
	}

	filtered := integration.FilterByProvider(fullProviderID)
	if len(filtered.Modes) == 0 {
		return Model{}, providerNotSupportedErr(fullProviderID, contextName, supported)
	}

	out := model.FilterByProvider(fullProviderID)
	return out, nil
}

func (s ModeSet) getSupportedProviders() map[string]bool {
	out := map[string]bool{}
	for _, m := range s.Modes {
		for provider := range m.Runs {
			out[provider] = true
		}
	}
	return out
}

func providerNotSupportedErr(providerID, contextName string, supported map[string]bool) error {
	available := make([]string, 0, len(supported))
	for p := range supported {
		available = append(available, p)
	}
	sort.Strings(available)
	return pipeline.NewUserError(pipeline.KindProviderNotSupported,
		fmt.Sprintf("provider %q not supported by context %q (available: %s)",
			providerID, contextName, strings.Join(available, ", ")), nil)
}

// ValidateModeReference checks a {% mode set:mode %} / --mode reference
// against model. An unknown mode-set yields UnknownModeSet; a known set
// without the named mode yields InvalidModeReference listing the available
// modes for that set.
func ValidateModeReference(model Model, modeSetID, modeID, contextName string) error {
	ms, ok := model.ModeSets[modeSetID]
	if !ok {
		return pipeline.NewUserError(pipeline.KindUnknownModeSet,
			fmt.Sprintf("unknown mode-set %q in context %q", modeSetID, contextName), nil)
	}
	if _, ok := ms.Modes[modeID]; !ok {
		available := make([]string, 0, len(ms.Modes))
		for id := range ms.Modes {
			available = append(available, id)
		}
		sort.Strings(available)
		return pipeline.NewUserError(pipeline.KindInvalidModeReference,
			fmt.Sprintf("mode %q not found in mode-set %q (available: %s)", modeID, modeSetID, strings.Join(available, ", ")), nil)
	}
	return nil
}
