package bptree

import (
	"fmt"
	"strings"
)

// CheckInvariants walks the whole tree and verifies its structural
// invariants: node occupancy bounds, strictly ascending keys, child counts,
// uniform leaf depth, intact parent links, and a leaf chain that matches the
// in-order traversal. Used by tests after every mutation.
func (t *Tree) CheckInvariants() error {
	if t.root == nil {
		return fmt.Errorf("tree has no root")
	}

	leafDepth := -1
	if err := t.checkNode(t.root, 0, &leafDepth); err != nil {
		return err
	}

	// The leaf chain must yield every key exactly once, strictly ascending.
	var chain []int
	for leaf := t.firstLeaf(); leaf != nil; leaf = leaf.next {
		for i := 0; i < leaf.n; i++ {
			chain = append(chain, leaf.keys[i])
		}
	}
	for i := 1; i < len(chain); i++ {
		if chain[i-1] >= chain[i] {
			return fmt.Errorf("leaf chain not strictly ascending at position %d: %d >= %d", i, chain[i-1], chain[i])
		}
	}

	inorder := t.inorderKeys(t.root)
	if len(inorder) != len(chain) {
		return fmt.Errorf("leaf chain has %d keys, in-order traversal has %d", len(chain), len(inorder))
	}
	for i := range chain {
		if chain[i] != inorder[i] {
			return fmt.Errorf("leaf chain and in-order traversal diverge at position %d: %d vs %d", i, chain[i], inorder[i])
		}
	}
	return nil
}

func (t *Tree) checkNode(node *Node, depth int, leafDepth *int) error {
	if node != t.root {
		if node.n < MinKeys {
			return fmt.Errorf("non-root node underfull: %d keys, minimum %d", node.n, MinKeys)
		}
		if node.parent == nil {
			return fmt.Errorf("non-root node has nil parent")
		}
	}
	if node.n > MaxKeys {
		return fmt.Errorf("node overfull: %d keys, maximum %d", node.n, MaxKeys)
	}

	for i := 1; i < node.n; i++ {
		if node.keys[i-1] >= node.keys[i] {
			return fmt.Errorf("node keys not strictly ascending: %d >= %d", node.keys[i-1], node.keys[i])
		}
	}

	if node.isLeaf {
		if *leafDepth == -1 {
			*leafDepth = depth
		} else if depth != *leafDepth {
			return fmt.Errorf("leaf at depth %d, expected %d", depth, *leafDepth)
		}
		return nil
	}

	for i := 0; i <= node.n; i++ {
		child := node.children[i]
		if child == nil {
			return fmt.Errorf("internal node with %d keys has nil child at %d", node.n, i)
		}
		if child.parent != node {
			return fmt.Errorf("child %d has wrong parent pointer", i)
		}
		if err := t.checkNode(child, depth+1, leafDepth); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) inorderKeys(node *Node) []int {
	if node == nil {
		return nil
	}
	if node.isLeaf {
		keys := make([]int, 0, node.n)
		for i := 0; i < node.n; i++ {
			keys = append(keys, node.keys[i])
		}
		return keys
	}
	var keys []int
	for i := 0; i <= node.n; i++ {
		keys = append(keys, t.inorderKeys(node.children[i])...)
	}
	return keys
}

// Dump renders the tree structure level by level. Debug helper.
func (t *Tree) Dump() string {
	var b strings.Builder
	t.dumpNode(&b, t.root, 0)
	return b.String()
}

func (t *Tree) dumpNode(b *strings.Builder, node *Node, level int) {
	if node == nil {
		return
	}
	b.WriteString(strings.Repeat("  ", level))
	kind := "internal"
	if node.isLeaf {
		kind = "leaf"
	}
	fmt.Fprintf(b, "%s %v", kind, node.keys[:node.n])
	if node.isLeaf {
		fmt.Fprintf(b, " %v", node.offsets[:node.n])
	}
	b.WriteByte('\n')
	if !node.isLeaf {
		for i := 0; i <= node.n; i++ {
			t.dumpNode(b, node.children[i], level+1)
		}
	}
}
