package adaptive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelInfo describes one LLM model's physical context window and token
// encoder, ported from original_source/lg/stats/model.py's ModelInfo.
type ModelInfo struct {
	Alias    string
	Provider string
	CtxLimit int
	Encoder  string
}

// PlanInfo describes a provider subscription plan's marketed context cap,
// which may be tighter than the model's physical window.
type PlanInfo struct {
	Name     string
	Provider string
	CtxCap   int
	Featured bool
}

// ModelsConfig is the full catalog of known models and plans, loaded from
// lg-cfg/models.yaml or the built-in defaults when that file is absent.
type ModelsConfig struct {
	SchemaVersion int
	Models        map[string]ModelInfo
	Plans         []PlanInfo
}

// ResolvedModel is a selector ("o3", "claude-3.5-sonnet (Pro)") resolved
// against a ModelsConfig: the base model plus, if named, a plan that caps
// the effective context limit.
type ResolvedModel struct {
	Name     string // original selector as given
	Base     string
	Provider string
	Encoder  string
	CtxLimit int // effective limit: min(model.CtxLimit, plan.CtxCap) if a plan applies
	Plan     string
}

const modelsCfgRelPath = "lg-cfg/models.yaml"

// defaultModels mirrors load.py's _DEFAULT_MODELS: used whenever a repo has
// no lg-cfg/models.yaml override.
func defaultModels() map[string]ModelInfo {
	return map[string]ModelInfo{
		"o3":                {Alias: "o3", Provider: "openai", CtxLimit: 200_000, Encoder: "cl100k_base"},
		"o3-mini":           {Alias: "o3-mini", Provider: "openai", CtxLimit: 200_000, Encoder: "cl100k_base"},
		"o4-mini":           {Alias: "o4-mini", Provider: "openai", CtxLimit: 200_000, Encoder: "cl100k_base"},
		"gpt-4o":            {Alias: "gpt-4o", Provider: "openai", CtxLimit: 128_000, Encoder: "o200k_base"},
		"gpt-4.1":           {Alias: "gpt-4.1", Provider: "openai", CtxLimit: 1_000_000, Encoder: "o200k_base"},
		"claude-3.5-sonnet": {Alias: "claude-3.5-sonnet", Provider: "anthropic", CtxLimit: 200_000, Encoder: "cl100k_base"},
		"gemini-1.5-pro":    {Alias: "gemini-1.5-pro", Provider: "google", CtxLimit: 1_000_000, Encoder: "cl100k_base"},
		"gemini-2.5-pro":    {Alias: "gemini-2.5-pro", Provider: "google", CtxLimit: 1_000_000, Encoder: "cl100k_base"},
		"command-r-plus":    {Alias: "command-r-plus", Provider: "cohere", CtxLimit: 128_000, Encoder: "cl100k_base"},
	}
}

// defaultPlans mirrors load.py's _DEFAULT_PLANS.
func defaultPlans() []PlanInfo {
	return []PlanInfo{
		{Name: "Free", Provider: "openai", CtxCap: 16_000, Featured: false},
		{Name: "Plus/Team", Provider: "openai", CtxCap: 32_000, Featured: true},
		{Name: "Pro", Provider: "openai", CtxCap: 128_000, Featured: true},
		{Name: "Free", Provider: "google", CtxCap: 32_000, Featured: false},
		{Name: "Pro", Provider: "google", CtxCap: 1_000_000, Featured: true},
		{Name: "Ultra", Provider: "google", CtxCap: 1_000_000, Featured: true},
		{Name: "Free", Provider: "anthropic", CtxCap: 32_000, Featured: false},
		{Name: "Pro", Provider: "anthropic", CtxCap: 200_000, Featured: true},
		{Name: "Enterprise", Provider: "anthropic", CtxCap: 500_000, Featured: true},
	}
}

type rawModelsFile struct {
	SchemaVersion int `yaml:"schema_version"`
	Models        map[string]struct {
		Provider string `yaml:"provider"`
		CtxLimit int    `yaml:"ctx_limit"`
		Encoder  string `yaml:"encoder"`
	} `yaml:"models"`
	Plans []struct {
		Name     string `yaml:"name"`
		Provider string `yaml:"provider"`
		CtxCap   int    `yaml:"ctx_cap"`
		Featured bool   `yaml:"featured"`
	} `yaml:"plans"`
}

// LoadModels reads repoRoot/lg-cfg/models.yaml and returns the resulting
// ModelsConfig, falling back to the built-in defaults when the file does not
// exist. Ported from load.py's load_models.
func LoadModels(repoRoot string) (ModelsConfig, error) {
	path := filepath.Join(repoRoot, modelsCfgRelPath)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ModelsConfig{SchemaVersion: 1, Models: defaultModels(), Plans: defaultPlans()}, nil
	}
	if err != nil {
		return ModelsConfig{}, fmt.Errorf("adaptive: reading %s: %w", path, err)
	}

	var raw rawModelsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return ModelsConfig{}, fmt.Errorf("adaptive: parsing %s: %w", path, err)
	}
	if raw.SchemaVersion == 0 {
		raw.SchemaVersion = 1
	}

	models := make(map[string]ModelInfo, len(raw.Models))
	for alias, node := range raw.Models {
		provider := node.Provider
		if provider == "" {
			provider = "openai"
		}
		encoder := node.Encoder
		if encoder == "" {
			encoder = "cl100k_base"
		}
		models[alias] = ModelInfo{Alias: alias, Provider: provider, CtxLimit: node.CtxLimit, Encoder: encoder}
	}

	plans := make([]PlanInfo, 0, len(raw.Plans))
	for _, node := range raw.Plans {
		plans = append(plans, PlanInfo{Name: node.Name, Provider: node.Provider, CtxCap: node.CtxCap, Featured: node.Featured})
	}

	return ModelsConfig{SchemaVersion: raw.SchemaVersion, Models: models, Plans: plans}, nil
}

// ListDisplayNames returns every model's alias plus "alias (Plan)" for each
// provider-matching featured plan, deduplicated and sorted.
func (c ModelsConfig) ListDisplayNames() []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, m := range c.Models {
		add(m.Alias)
		for _, p := range c.Plans {
			if p.Provider == m.Provider && p.Featured {
				add(fmt.Sprintf("%s (%s)", m.Alias, p.Name))
			}
		}
	}
	sort.Strings(out)
	return out
}

// ParseSelector splits a selector like "claude-3.5-sonnet (Pro)" into its
// base model alias and optional plan name. Ported from model.py's
// parse_selector.
func ParseSelector(selector string) (base string, plan string) {
	s := strings.TrimSpace(selector)
	if strings.HasSuffix(s, ")") {
		if idx := strings.LastIndex(s, " ("); idx >= 0 {
			return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+2 : len(s)-1])
		}
	}
	return s, ""
}

// ResolveModel resolves selector against cfg, applying a named plan's
// context cap when present. Ported from load.py's get_model_info.
func (c ModelsConfig) ResolveModel(selector string) (ResolvedModel, error) {
	base, planName := ParseSelector(selector)
	m, ok := c.Models[base]
	if !ok {
		return ResolvedModel{}, fmt.Errorf("adaptive: model %q not found", base)
	}

	effLimit := m.CtxLimit
	chosenPlan := ""
	if planName != "" {
		found := false
		for _, p := range c.Plans {
			if p.Provider == m.Provider && strings.EqualFold(p.Name, planName) {
				chosenPlan = p.Name
				if p.CtxCap < effLimit {
					effLimit = p.CtxCap
				}
				found = true
				break
			}
		}
		if !found {
			return ResolvedModel{}, fmt.Errorf("adaptive: plan %q not found for provider %q", planName, m.Provider)
		}
	}

	return ResolvedModel{
		Name:     selector,
		Base:     m.Alias,
		Provider: m.Provider,
		Encoder:  m.Encoder,
		CtxLimit: effLimit,
		Plan:     chosenPlan,
	}, nil
}
