package kdb

import "github.com/kdbtools/kdb/kdberr"

// Node is one group in the reconstructed tree, plus its direct entries
// and child groups. The synthetic root Node (level -1) has a nil Group;
// Database.Hierarchy uses its Entries to carry entries whose groupid
// matched no group, so they are not lost on the next ReplaceFromHierarchy.
type Node struct {
	Group    *Group
	Entries  []Entry
	Children []*Node
}

// rootLevel is the implicit level of the synthetic root node that every
// top-level (level 0) group hangs off of.
const rootLevel = -1

// Reconstruct rebuilds the implicit group tree from groups, a flat
// pre-order traversal with an explicit Level per group, per spec
// section 4.6. Entries are attached to the node whose GroupID matches;
// entries with no matching group are returned separately rather than
// silently dropped.
func Reconstruct(groups []Group, entries []Entry) (root *Node, orphans []Entry, err error) {
	root = &Node{}
	stack := []*Node{root}
	byID := make(map[uint32]*Node, len(groups))

	for i := range groups {
		g := groups[i]
		level := int(g.Level)
		for level != stackTop(stack).level()+1 {
			if len(stack) == 1 {
				return nil, nil, kdberr.Wrap("reconstruct_hierarchy", kdberr.CodeMalformedHierarchy, nil)
			}
			stack = stack[:len(stack)-1]
		}
		n := &Node{Group: &groups[i]}
		parent := stackTop(stack)
		parent.Children = append(parent.Children, n)
		stack = append(stack, n)
		byID[g.GroupID] = n
	}

	for _, e := range entries {
		n, ok := byID[e.GroupID]
		if !ok {
			orphans = append(orphans, e)
			continue
		}
		n.Entries = append(n.Entries, e)
	}
	return root, orphans, nil
}

func stackTop(stack []*Node) *Node { return stack[len(stack)-1] }

func (n *Node) level() int {
	if n.Group == nil {
		return rootLevel
	}
	return int(n.Group.Level)
}

// Flatten is the inverse of Reconstruct: a depth-first pre-order walk
// that recomputes each node's Level from its depth and emits the
// groups in that order, preserving sibling order.
func Flatten(root *Node) []Group {
	var out []Group
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if n.Group != nil {
			g := *n.Group
			g.Level = uint16(depth)
			out = append(out, g)
		}
		childDepth := depth
		if n.Group != nil {
			childDepth = depth + 1
		}
		for _, c := range n.Children {
			walk(c, childDepth)
		}
	}
	walk(root, 0)
	return out
}

// FlattenEntries walks the tree in the same order Flatten uses for
// groups, collecting each node's entries in encounter order. Combined
// with Flatten this lets ReplaceFromHierarchy rebuild the flat
// Database.Groups/Entries sequences from an edited tree.
func FlattenEntries(root *Node) []Entry {
	var out []Entry
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n.Entries...)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}
