package bptree

// Delete removes key from the tree. Deleting a key that is not present is a
// no-op.
func (t *Tree) Delete(key int) {
	leaf := t.findLeaf(key)
	if leaf == nil {
		return
	}

	found := false
	for i := 0; i < leaf.n; i++ {
		if leaf.keys[i] == key {
			found = true
			break
		}
	}
	if !found {
		return
	}

	t.deleteEntry(leaf, key)
}

// deleteEntry removes key from node and restores the occupancy invariant,
// collapsing the root when it empties out.
func (t *Tree) deleteEntry(node *Node, key int) {
	index := 0
	for index < node.n && node.keys[index] < key {
		index++
	}
	if index == node.n || node.keys[index] != key {
		return
	}

	for i := index; i < node.n-1; i++ {
		node.keys[i] = node.keys[i+1]
		if node.isLeaf {
			node.offsets[i] = node.offsets[i+1]
		}
	}
	node.n--

	if node != t.root && node.n < MinKeys {
		t.handleUnderflow(node)
	} else if t.root.n == 0 && !t.root.isLeaf {
		// An internal root with no keys has exactly one child left; promote
		// it and shrink the tree by one level.
		t.root = t.root.children[0]
		if t.root != nil {
			t.root.parent = nil
		}
	}
	// An empty leaf root stays: that is just the empty tree.
}

// handleUnderflow restores MinKeys occupancy for node, preferring to borrow
// one entry from a sibling and merging only when neither sibling can lend.
func (t *Tree) handleUnderflow(node *Node) {
	if node == nil || node == t.root || node.n >= MinKeys {
		return
	}

	parent := node.parent
	if parent == nil {
		return
	}

	idx := 0
	for idx <= parent.n && parent.children[idx] != node {
		idx++
	}
	if idx > parent.n {
		return
	}

	// Borrow from the left sibling.
	if idx > 0 {
		left := parent.children[idx-1]
		if left.n > MinKeys {
			sep := idx - 1

			for i := node.n; i > 0; i-- {
				node.keys[i] = node.keys[i-1]
				if node.isLeaf {
					node.offsets[i] = node.offsets[i-1]
				} else {
					node.children[i+1] = node.children[i]
				}
			}
			if !node.isLeaf {
				node.children[1] = node.children[0]
			}

			if node.isLeaf {
				node.keys[0] = left.keys[left.n-1]
				node.offsets[0] = left.offsets[left.n-1]
				parent.keys[sep] = node.keys[0]
			} else {
				// Rotate through the parent: the separator comes down, the
				// sibling's last key goes up, and its last child moves over.
				node.keys[0] = parent.keys[sep]
				node.children[0] = left.children[left.n]
				if node.children[0] != nil {
					node.children[0].parent = node
				}
				parent.keys[sep] = left.keys[left.n-1]
			}

			left.n--
			node.n++
			return
		}
	}

	// Borrow from the right sibling.
	if idx < parent.n {
		right := parent.children[idx+1]
		if right.n > MinKeys {
			sep := idx

			if node.isLeaf {
				node.keys[node.n] = right.keys[0]
				node.offsets[node.n] = right.offsets[0]
				parent.keys[sep] = right.keys[1]

				for i := 0; i < right.n-1; i++ {
					right.keys[i] = right.keys[i+1]
					right.offsets[i] = right.offsets[i+1]
				}
			} else {
				node.keys[node.n] = parent.keys[sep]
				node.children[node.n+1] = right.children[0]
				if node.children[node.n+1] != nil {
					node.children[node.n+1].parent = node
				}
				parent.keys[sep] = right.keys[0]

				right.children[0] = right.children[1]
				for i := 0; i < right.n-1; i++ {
					right.keys[i] = right.keys[i+1]
					right.children[i+1] = right.children[i+2]
				}
				right.children[right.n] = nil
			}

			right.n--
			node.n++
			return
		}
	}

	// No sibling can lend: merge. Prefer folding node into its left sibling.
	if idx > 0 {
		left := parent.children[idx-1]
		t.mergeNodes(left, node, idx-1, parent.keys[idx-1])
	} else {
		right := parent.children[idx+1]
		t.mergeNodes(node, right, idx, parent.keys[idx])
	}
}

// mergeNodes folds right into left, pulling the separator down for internal
// merges and splicing the leaf chain for leaf merges, then removes the
// separator from the parent and checks it for underflow in turn.
func (t *Tree) mergeNodes(left, right *Node, sepIndex int, sep int) {
	parent := left.parent

	if !left.isLeaf {
		left.keys[left.n] = sep
		left.n++
	}

	for i := 0; i < right.n; i++ {
		left.keys[left.n] = right.keys[i]
		if left.isLeaf {
			left.offsets[left.n] = right.offsets[i]
		} else {
			left.children[left.n] = right.children[i]
			if left.children[left.n] != nil {
				left.children[left.n].parent = left
			}
		}
		left.n++
	}

	if !left.isLeaf {
		left.children[left.n] = right.children[right.n]
		if left.children[left.n] != nil {
			left.children[left.n].parent = left
		}
	}

	if left.isLeaf {
		left.next = right.next
	}

	for i := sepIndex; i < parent.n-1; i++ {
		parent.keys[i] = parent.keys[i+1]
		parent.children[i+1] = parent.children[i+2]
	}
	parent.children[parent.n] = nil
	parent.n--

	if parent != t.root && parent.n < MinKeys {
		t.handleUnderflow(parent)
	} else if t.root.n == 0 && !t.root.isLeaf {
		t.root = left
		left.parent = nil
	}
}
