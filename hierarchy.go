package ostiary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ostiary/ostiary/store"
)

// Node is one permission in the hierarchy graph.
type Node struct {
	Name     string   `json:"name"`
	Category string   `json:"category,omitempty"`
	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children,omitempty"`
}

// Relationship is one flattened parent→child edge.
type Relationship struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// HierarchySnapshot is the permission hierarchy built from one store read:
// the node graph plus the flattened edge list derived from it. Both are
// cached and invalidated together.
type HierarchySnapshot struct {
	Nodes         map[string]*Node `json:"nodes"`
	Relationships []Relationship   `json:"relationships"`
	BuiltAt       time.Time        `json:"built_at"`
}

// Chain is the result of an inheritance query for one permission.
type Chain struct {
	// InheritsFrom lists ancestors, nearest first.
	InheritsFrom []string `json:"inherits_from"`

	// GrantsTo lists all descendants, deduplicated.
	GrantsTo []string `json:"grants_to"`
}

// Hierarchy returns the permission hierarchy, building it from the store
// on cache miss. The graph layers implicit category-wildcard parents
// ("users.*" over every "users.x") on top of explicitly persisted parent
// references; an explicit parent always wins over the implicit one.
func (e *Engine) Hierarchy(ctx context.Context) (*HierarchySnapshot, error) {
	if e.cache != nil {
		if snap, ok := e.cache.Hierarchy(ctx); ok {
			return snap, nil
		}
	}

	records, err := e.store.PermissionRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("ostiary: load permission relationships: %w", err)
	}

	snap := buildHierarchy(records, e.logger)
	if e.cache != nil {
		e.cache.SetHierarchy(ctx, snap)
	}
	return snap, nil
}

// InheritanceChain returns the ancestors and descendants of a permission.
// Both walks carry a visited set: a repeat visit stops the walk and is
// reported as a data-integrity warning, never an infinite loop.
func (e *Engine) InheritanceChain(ctx context.Context, permission string) (Chain, error) {
	snap, err := e.Hierarchy(ctx)
	if err != nil {
		return Chain{}, err
	}
	return snap.chain(permission, e.logger), nil
}

// GrantsAccessTo reports whether holding parent implies holding target.
func (e *Engine) GrantsAccessTo(ctx context.Context, parent, target string) (bool, error) {
	if parent == target {
		return true, nil
	}
	if parent == SuperAdminPermission || parent == WildcardAll {
		return true, nil
	}
	if strings.Contains(parent, WildcardAll) {
		if matchCategoryWildcard(parent, target) || matchSegments(parent, target) {
			return true, nil
		}
	}

	chain, err := e.InheritanceChain(ctx, parent)
	if err != nil {
		return false, err
	}
	for _, name := range chain.GrantsTo {
		if name == target {
			return true, nil
		}
	}
	return false, nil
}

// ExpandPermissions returns the union of the direct permissions with
// everything each of them grants through the hierarchy, deduplicated.
// Order is not significant.
func (e *Engine) ExpandPermissions(ctx context.Context, direct []string) ([]string, error) {
	snap, err := e.Hierarchy(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(direct))
	expanded := make([]string, 0, len(direct))
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			expanded = append(expanded, name)
		}
	}

	for _, p := range direct {
		add(p)
		for _, granted := range snap.chain(p, e.logger).GrantsTo {
			add(granted)
		}
	}
	return expanded, nil
}

// PermissionsByCategory returns the nodes whose category equals the
// argument or whose name is prefixed by it.
func (e *Engine) PermissionsByCategory(ctx context.Context, category string) ([]*Node, error) {
	snap, err := e.Hierarchy(ctx)
	if err != nil {
		return nil, err
	}

	var nodes []*Node
	prefix := category + "."
	for _, n := range snap.Nodes {
		if n.Category == category || strings.HasPrefix(n.Name, prefix) {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

// buildHierarchy assembles the node graph from persisted rows.
//
// Explicit parent references come straight from the rows. On top, for
// every category prefix C observed in any permission name, a virtual
// "C.*" node is synthesized as parent of every non-wildcard permission
// named "C.x" that has no explicit parent.
func buildHierarchy(records []store.PermissionRecord, logger *slog.Logger) *HierarchySnapshot {
	nodes := make(map[string]*Node, len(records))

	for _, rec := range records {
		nodes[rec.Name] = &Node{
			Name:     rec.Name,
			Category: rec.Category,
			Parent:   rec.Parent,
		}
	}

	// Explicit edges. A parent reference to a missing row is tolerated:
	// the parent node is synthesized without a category.
	for _, n := range nodes {
		if n.Parent == "" {
			continue
		}
		parent, ok := nodes[n.Parent]
		if !ok {
			parent = &Node{Name: n.Parent}
			nodes[n.Parent] = parent
		}
		parent.Children = append(parent.Children, n.Name)
	}

	// Implicit category wildcards.
	categories := make(map[string]struct{})
	for name := range nodes {
		if strings.Contains(name, WildcardAll) {
			continue
		}
		if i := strings.Index(name, "."); i > 0 {
			categories[name[:i]] = struct{}{}
		}
	}

	for category := range categories {
		wildcard := category + ".*"
		parent, ok := nodes[wildcard]
		if !ok {
			parent = &Node{Name: wildcard, Category: category}
			nodes[wildcard] = parent
		}
		prefix := category + "."
		for name, n := range nodes {
			if name == wildcard || strings.Contains(name, WildcardAll) {
				continue
			}
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			// Explicit parent wins over the implicit category parent.
			if n.Parent != "" {
				continue
			}
			n.Parent = wildcard
			parent.Children = append(parent.Children, name)
		}
	}

	for _, n := range nodes {
		sort.Strings(n.Children)
	}

	snap := &HierarchySnapshot{
		Nodes:   nodes,
		BuiltAt: time.Now(),
	}
	snap.Relationships = flattenEdges(nodes)

	// Upward integrity sweep so cycles are reported at build time, not
	// discovered lazily on the first chain query.
	for name := range nodes {
		walkAncestors(nodes, name, logger)
	}

	return snap
}

func flattenEdges(nodes map[string]*Node) []Relationship {
	var edges []Relationship
	for _, n := range nodes {
		for _, child := range n.Children {
			edges = append(edges, Relationship{Parent: n.Name, Child: child})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Parent != edges[j].Parent {
			return edges[i].Parent < edges[j].Parent
		}
		return edges[i].Child < edges[j].Child
	})
	return edges
}

// chain computes the inheritance chain for one permission against this
// snapshot.
func (s *HierarchySnapshot) chain(permission string, logger *slog.Logger) Chain {
	c := Chain{
		InheritsFrom: walkAncestors(s.Nodes, permission, logger),
	}

	visited := map[string]struct{}{permission: {}}
	c.GrantsTo = collectDescendants(s.Nodes, permission, visited, logger)
	return c
}

// walkAncestors follows parent pointers upward, nearest ancestor first,
// stopping on the root or on a revisit (cycle guard).
func walkAncestors(nodes map[string]*Node, permission string, logger *slog.Logger) []string {
	var ancestors []string
	visited := map[string]struct{}{permission: {}}

	current := permission
	for {
		n, ok := nodes[current]
		if !ok || n.Parent == "" {
			return ancestors
		}
		if _, seen := visited[n.Parent]; seen {
			if logger != nil {
				logger.Warn("permission hierarchy cycle",
					slog.String("permission", permission),
					slog.String("repeated", n.Parent),
				)
			}
			return ancestors
		}
		visited[n.Parent] = struct{}{}
		ancestors = append(ancestors, n.Parent)
		current = n.Parent
	}
}

// collectDescendants gathers all children transitively, deduplicated via
// the shared visited set.
func collectDescendants(nodes map[string]*Node, permission string, visited map[string]struct{}, logger *slog.Logger) []string {
	n, ok := nodes[permission]
	if !ok {
		return nil
	}

	var descendants []string
	for _, child := range n.Children {
		if _, seen := visited[child]; seen {
			if logger != nil {
				logger.Warn("permission hierarchy cycle",
					slog.String("permission", permission),
					slog.String("repeated", child),
				)
			}
			continue
		}
		visited[child] = struct{}{}
		descendants = append(descendants, child)
		descendants = append(descendants, collectDescendants(nodes, child, visited, logger)...)
	}
	return descendants
}
