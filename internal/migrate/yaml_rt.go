package migrate

import (
	"os"

	"gopkg.in/yaml.v3"
)

// loadYAMLMapNode reads path as a round-trip YAML document and returns its
// top-level mapping node. A missing file or a non-mapping document yields a
// fresh empty mapping, mirroring yaml_rt.py's load_yaml_rt normalizing
// anything non-map to an empty CommentedMap. Using yaml.Node (rather than a
// plain map[string]any) preserves comments and key order across a
// read-transform-write cycle, the same guarantee ruamel.yaml's round-trip
// mode gives the original.
func loadYAMLMapNode(path string) (*yaml.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyMapNode(), nil
		}
		return nil, err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return emptyMapNode(), nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return emptyMapNode(), nil
	}
	return root, nil
}

func emptyMapNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// dumpYAMLMapNode atomically writes node to path.
func dumpYAMLMapNode(path string, node *yaml.Node) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	tmp := path + ".tmp-rt"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// rewriteYAML loads path as a round-trip mapping, calls transform, and
// atomically saves only if transform reports a change. Mirrors
// yaml_rt.py's rewrite_yaml_rt.
func rewriteYAML(path string, transform func(*yaml.Node) bool) (bool, error) {
	node, err := loadYAMLMapNode(path)
	if err != nil {
		return false, err
	}
	if !transform(node) {
		return false, nil
	}
	if err := dumpYAMLMapNode(path, node); err != nil {
		return false, err
	}
	return true, nil
}

// mapNodeGet returns the value node for key within a mapping node m, or nil.
func mapNodeGet(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// mapNodeDelete removes key from mapping node m, reporting whether it was
// present.
func mapNodeDelete(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			return true
		}
	}
	return false
}

// mapNodeSet sets key to a plain string scalar value within m, adding the
// key if absent.
func mapNodeSet(m *yaml.Node, key, value string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

// mapNodeBool reports a scalar boolean value and whether it was parseable
// as one.
func mapNodeBool(n *yaml.Node) (bool, bool) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return false, false
	}
	switch n.Value {
	case "true", "True", "TRUE":
		return true, true
	case "false", "False", "FALSE":
		return false, true
	default:
		return false, false
	}
}

// mapEntry is one key/value pair from a mapping node, in document order.
type mapEntry struct {
	Key   string
	Value *yaml.Node
}

// mapNodeEntries returns the mapping's keys in document order, paired with
// their value nodes.
func mapNodeEntries(m *yaml.Node) []mapEntry {
	out := make([]mapEntry, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		out = append(out, mapEntry{Key: m.Content[i].Value, Value: m.Content[i+1]})
	}
	return out
}
