// Package filter implements the hierarchical allow/block filter tree
// (spec.md §4.4), generalized from internal/discovery/filter.go's flat
// include/exclude PatternFilter into a tree keyed by directory component,
// with conditional overlays resolved once per run via Bake.
package filter

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lgctx/lgctx/internal/condition"
)

// Mode selects a FilterNode's default policy.
type Mode string

const (
	ModeAllow Mode = "allow"
	ModeBlock Mode = "block"
)

// ConditionalFilter is an (condition, allow, block) overlay: when Condition
// evaluates true against the active ConditionContext, Allow/Block are added
// to the node's effective pattern sets.
type ConditionalFilter struct {
	Condition string
	Allow     []string
	Block     []string
}

// FilterNode is one node of the tree, keyed by directory component in its
// parent's Children map. Patterns are evaluated against paths relative to
// this node's own subtree root.
type FilterNode struct {
	Mode        Mode
	Allow       []string
	Block       []string
	Conditional []ConditionalFilter
	Children    map[string]*FilterNode
}

// NewNode returns an empty node with the given default mode.
func NewNode(mode Mode) *FilterNode {
	return &FilterNode{Mode: mode, Children: map[string]*FilterNode{}}
}

// Bake evaluates every conditional overlay in the tree against ctx and
// returns a new tree with matching overlays folded into Allow/Block at every
// node, recursively. The returned tree has no Conditional entries left, so
// Includes/MayDescend need no further context. Per spec.md §4.5 step 1, this
// clone-and-bake happens once per manifest build.
func (n *FilterNode) Bake(ctx *condition.Context) *FilterNode {
	if n == nil {
		return nil
	}
	out := &FilterNode{
		Mode:     n.Mode,
		Allow:    append([]string{}, n.Allow...),
		Block:    append([]string{}, n.Block...),
		Children: make(map[string]*FilterNode, len(n.Children)),
	}
	for _, cf := range n.Conditional {
		expr, err := condition.Parse(cf.Condition)
		if err != nil {
			// Invalid conditional references are logged by the caller and
			// treated as false per spec.md §4.3; here we simply skip.
			continue
		}
		if expr.Eval(ctx) {
			out.Allow = append(out.Allow, cf.Allow...)
			out.Block = append(out.Block, cf.Block...)
		}
	}
	for name, child := range n.Children {
		out.Children[name] = child.Bake(ctx)
	}
	return out
}

// Includes reports whether relPath (POSIX, relative to this node's subtree
// root) passes this node's filter, descending into a matching child node
// for the remainder of the path when one exists. relPath must already have
// leading "./" stripped.
func (n *FilterNode) Includes(relPath string) bool {
	node, sub := n.resolve(relPath)
	return node.includesHere(sub)
}

// MayDescend reports whether any pattern in this node's subtree could
// plausibly match a descendant of relDir, used to prune directory walks
// early. relDir is POSIX, relative to this node's subtree root.
func (n *FilterNode) MayDescend(relDir string) bool {
	node, sub := n.resolve(relDir)
	return node.mayDescendHere(sub)
}

// resolve walks child nodes following relPath's components as long as an
// explicit child exists for each one, returning the deepest node reached and
// the remaining path relative to that node's root.
func (n *FilterNode) resolve(relPath string) (*FilterNode, string) {
	node := n
	remaining := relPath
	for {
		remaining = strings.TrimPrefix(remaining, "/")
		if remaining == "" {
			return node, remaining
		}
		first, rest, hasRest := strings.Cut(remaining, "/")
		child, ok := node.Children[first]
		if !ok {
			return node, remaining
		}
		node = child
		if hasRest {
			remaining = rest
		} else {
			remaining = ""
		}
	}
}

func (n *FilterNode) includesHere(relPath string) bool {
	allowed := matchAny(n.Allow, relPath)
	blocked := matchAny(n.Block, relPath)
	switch n.Mode {
	case ModeAllow:
		return allowed && !blocked
	default: // ModeBlock: default-allow
		return !blocked || allowed
	}
}

func (n *FilterNode) mayDescendHere(relDir string) bool {
	for _, p := range n.Allow {
		if patternCouldDescend(p, relDir) {
			return true
		}
	}
	for _, p := range n.Block {
		if patternCouldDescend(p, relDir) {
			return true
		}
	}
	// An allow-mode node with no patterns at all can never select anything
	// below it; a block-mode node with no patterns defaults to "allow
	// everything", so descent is always worthwhile.
	if len(n.Allow) == 0 && len(n.Block) == 0 {
		return n.Mode == ModeBlock
	}
	return false
}

func matchAny(patterns []string, relPath string) bool {
	for _, p := range patterns {
		if matchOne(p, relPath) {
			return true
		}
	}
	return false
}

// matchOne matches a single pattern against relPath. A leading "/" anchors
// the pattern to the node's subtree root (matched verbatim, minus the
// slash); an unanchored pattern may match starting at any depth, mirroring
// gitignore-style unanchored patterns.
func matchOne(pattern, relPath string) bool {
	if strings.HasPrefix(pattern, "/") {
		anchored := strings.TrimPrefix(pattern, "/")
		ok, err := doublestar.Match(anchored, relPath)
		return err == nil && ok
	}
	if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
		return true
	}
	ok, err := doublestar.Match(path.Join("**", pattern), relPath)
	return err == nil && ok
}

// patternCouldDescend conservatively reports whether pattern could match
// some descendant path beginning with relDir. Anchored patterns are checked
// component-by-component against relDir's literal prefix; a wildcard
// component ("*", "?", or any component containing "**") is treated as
// "could match anything here", stopping the prefix check early.
func patternCouldDescend(pattern, relDir string) bool {
	anchored := strings.HasPrefix(pattern, "/")
	pat := strings.TrimPrefix(pattern, "/")
	if !anchored {
		// Unanchored patterns can start matching at any depth, so any
		// directory is a plausible ancestor of a match.
		return true
	}
	if relDir == "" {
		return true
	}
	patComponents := strings.Split(pat, "/")
	dirComponents := strings.Split(relDir, "/")
	n := len(dirComponents)
	if n > len(patComponents) {
		n = len(patComponents)
	}
	for i := 0; i < n; i++ {
		pc := patComponents[i]
		if strings.Contains(pc, "*") || strings.Contains(pc, "?") {
			return true
		}
		if pc != dirComponents[i] {
			return false
		}
	}
	return true
}
