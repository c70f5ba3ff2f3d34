// Package bptree implements the in-memory B+ tree that backs each table's
// primary index. It maps integer primary keys to byte offsets in the table's
// data file and does no I/O of its own. The tree is not safe for concurrent
// use; the owning table serializes access under its lock.
package bptree

// MaxKeys is the capacity of a node. MinKeys is the occupancy floor for
// every node except the root.
const (
	MaxKeys = 4
	MinKeys = MaxKeys / 2
)

// Node is a single tree node. Leaves carry one offset per key and chain
// together left-to-right through next. Internal nodes carry n+1 children.
// parent and next are navigation pointers only; the tree owns its nodes.
type Node struct {
	keys     [MaxKeys]int
	offsets  [MaxKeys]int64
	children [MaxKeys + 1]*Node
	n        int
	isLeaf   bool
	parent   *Node
	next     *Node
}

// Tree is a B+ tree over integer keys. A fresh tree has a single empty leaf
// as its root.
type Tree struct {
	root *Node
}

func New() *Tree {
	return &Tree{root: newNode(true)}
}

func newNode(isLeaf bool) *Node {
	return &Node{isLeaf: isLeaf}
}

// findLeaf walks from the root to the leaf where key lives or would be
// inserted. At each internal node it takes the first child whose separator
// exceeds the key, or the rightmost child.
func (t *Tree) findLeaf(key int) *Node {
	cur := t.root
	for !cur.isLeaf {
		i := 0
		for i < cur.n && key >= cur.keys[i] {
			i++
		}
		cur = cur.children[i]
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Len reports the number of keys stored in the tree.
func (t *Tree) Len() int {
	count := 0
	for leaf := t.firstLeaf(); leaf != nil; leaf = leaf.next {
		count += leaf.n
	}
	return count
}

func (t *Tree) firstLeaf() *Node {
	cur := t.root
	for cur != nil && !cur.isLeaf {
		cur = cur.children[0]
	}
	return cur
}
