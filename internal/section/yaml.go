package section

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lgctx/lgctx/internal/filter"
	"github.com/lgctx/lgctx/internal/pipeline"
)

// orderedOptions decodes a YAML mapping node into an ordered []KV, since
// option-patch merge order is part of the adapter-config contract and
// map[string]any iteration order is not stable.
type orderedOptions []KV

func (o *orderedOptions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("section: expected a mapping, got %v", node.Kind)
	}
	out := make(orderedOptions, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var val any
		if err := node.Content[i+1].Decode(&val); err != nil {
			return fmt.Errorf("section: decoding option %q: %w", key, err)
		}
		out = append(out, KV{Key: key, Value: val})
	}
	*o = out
	return nil
}

type rawConditionalOption struct {
	Condition string          `yaml:"condition"`
	Options   orderedOptions  `yaml:"options"`
}

type rawAdapterConfig struct {
	Options orderedOptions          `yaml:"options"`
	When    []rawConditionalOption `yaml:"when"`
}

type rawFilterWhen struct {
	Condition string   `yaml:"condition"`
	Allow     []string `yaml:"allow"`
	Block     []string `yaml:"block"`
}

type rawFilterNode struct {
	Mode     string                    `yaml:"mode"`
	Allow    []string                  `yaml:"allow"`
	Block    []string                  `yaml:"block"`
	When     []rawFilterWhen           `yaml:"when"`
	Children map[string]rawFilterNode `yaml:"children"`
}

func (r rawFilterNode) toFilterNode() *filter.FilterNode {
	mode := filter.ModeBlock
	if r.Mode == "allow" {
		mode = filter.ModeAllow
	}
	n := filter.NewNode(mode)
	n.Allow = append([]string{}, r.Allow...)
	n.Block = append([]string{}, r.Block...)
	for _, w := range r.When {
		n.Conditional = append(n.Conditional, filter.ConditionalFilter{
			Condition: w.Condition,
			Allow:     w.Allow,
			Block:     w.Block,
		})
	}
	for name, child := range r.Children {
		n.Children[name] = child.toFilterNode()
	}
	return n
}

type rawTargetRule struct {
	Pattern  string                    `yaml:"pattern"`
	Adapters map[string]orderedOptions `yaml:"adapters"`
}

type rawSectionConfig struct {
	Extends    []string                    `yaml:"extends"`
	Extensions []string                    `yaml:"extensions"`
	Filters    *rawFilterNode              `yaml:"filters"`
	Adapters   map[string]rawAdapterConfig `yaml:"adapters"`
	Targets    []rawTargetRule             `yaml:"targets"`
	ModeSets   map[string]any              `yaml:"mode-sets"`
	TagSets    map[string]any              `yaml:"tag-sets"`
	PathLabels string                      `yaml:"path_labels"`
	SkipEmpty  *bool                       `yaml:"skip_empty"`
}

// parseSectionFile decodes one sections.yaml/*.sec.yaml document into
// SectionConfig values keyed by their raw (unprefixed) name.
func parseSectionFile(data []byte) (map[string]*SectionConfig, error) {
	var raw map[string]rawSectionConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("section: parsing yaml: %w", err)
	}

	out := make(map[string]*SectionConfig, len(raw))
	for name, r := range raw {
		cfg := &SectionConfig{
			Name:       name,
			Extends:    r.Extends,
			Extensions: r.Extensions,
			ModeSetsRaw: r.ModeSets,
			TagSetsRaw:  r.TagSets,
			SkipEmpty:   r.SkipEmpty != nil && *r.SkipEmpty,
		}
		if r.Filters != nil {
			cfg.Filters = r.Filters.toFilterNode()
		}
		if len(r.Adapters) > 0 {
			cfg.Adapters = make(map[string]AdapterConfig, len(r.Adapters))
			for aname, a := range r.Adapters {
				ac := AdapterConfig{BaseOptions: []KV(a.Options)}
				for _, w := range a.When {
					ac.Conditional = append(ac.Conditional, ConditionalOption{
						Condition: w.Condition,
						Options:   kvToMap(w.Options),
					})
				}
				cfg.Adapters[aname] = ac
			}
		}
		for _, t := range r.Targets {
			overrides := make(map[string]map[string]any, len(t.Adapters))
			for aname, opts := range t.Adapters {
				overrides[aname] = kvToMap(opts)
			}
			cfg.Targets = append(cfg.Targets, TargetRule{Pattern: t.Pattern, AdapterOverrides: overrides})
		}
		switch r.PathLabels {
		case "relative":
			cfg.PathLabels = pipeline.PathLabelRelative
		case "basename":
			cfg.PathLabels = pipeline.PathLabelBasename
		default:
			cfg.PathLabels = pipeline.PathLabelScopeRelative
		}
		out[name] = cfg
	}
	return out, nil
}

func kvToMap(kvs []KV) map[string]any {
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		out[kv.Key] = kv.Value
	}
	return out
}
