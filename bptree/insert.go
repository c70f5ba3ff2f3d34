package bptree

// Insert adds key with its file offset. Inserting a key that is already
// present is undefined; the table layer rejects duplicates before it ever
// reaches the tree.
func (t *Tree) Insert(key int, offset int64) {
	if t.root.isLeaf && t.root.n == 0 {
		insertIntoLeaf(t.root, key, offset)
		return
	}

	leaf := t.findLeaf(key)
	if leaf == nil {
		return
	}

	if leaf.n < MaxKeys {
		insertIntoLeaf(leaf, key, offset)
		return
	}

	// Leaf is full: merge the MaxKeys existing entries and the new one into
	// a sorted scratch array, then split it across the old leaf and a new
	// right sibling.
	var tmpKeys [MaxKeys + 1]int
	var tmpOffsets [MaxKeys + 1]int64

	i := 0
	for i < MaxKeys && key > leaf.keys[i] {
		tmpKeys[i] = leaf.keys[i]
		tmpOffsets[i] = leaf.offsets[i]
		i++
	}
	tmpKeys[i] = key
	tmpOffsets[i] = offset
	for ; i < MaxKeys; i++ {
		tmpKeys[i+1] = leaf.keys[i]
		tmpOffsets[i+1] = leaf.offsets[i]
	}

	newLeaf := newNode(true)
	newLeaf.parent = leaf.parent

	split := (MaxKeys + 1) / 2

	leaf.n = split
	for i = 0; i < split; i++ {
		leaf.keys[i] = tmpKeys[i]
		leaf.offsets[i] = tmpOffsets[i]
	}

	newLeaf.n = MaxKeys + 1 - split
	for i = 0; i < newLeaf.n; i++ {
		newLeaf.keys[i] = tmpKeys[split+i]
		newLeaf.offsets[i] = tmpOffsets[split+i]
	}

	newLeaf.next = leaf.next
	leaf.next = newLeaf

	t.insertIntoParent(leaf, newLeaf.keys[0], newLeaf)
}

// insertIntoLeaf places key/offset at its sorted position in a leaf that has
// room, shifting larger entries right.
func insertIntoLeaf(leaf *Node, key int, offset int64) {
	i := leaf.n - 1
	for i >= 0 && key < leaf.keys[i] {
		leaf.keys[i+1] = leaf.keys[i]
		leaf.offsets[i+1] = leaf.offsets[i]
		i--
	}
	leaf.keys[i+1] = key
	leaf.offsets[i+1] = offset
	leaf.n++
}

// insertIntoParent records the separator key between left and right in their
// parent after a split, splitting the parent in turn when it is full. A split
// of the root grows the tree by one level.
func (t *Tree) insertIntoParent(left *Node, key int, right *Node) {
	parent := left.parent

	if parent == nil {
		newRoot := newNode(false)
		newRoot.keys[0] = key
		newRoot.children[0] = left
		newRoot.children[1] = right
		newRoot.n = 1
		left.parent = newRoot
		right.parent = newRoot
		t.root = newRoot
		return
	}

	index := 0
	for index < parent.n && parent.children[index] != left {
		index++
	}

	if parent.n < MaxKeys {
		insertIntoNode(parent, index, key, right)
		return
	}

	// Parent is full: split it. Unlike a leaf split, the middle key moves up
	// to the grandparent and is not kept in either half.
	var tmpKeys [MaxKeys + 1]int
	var tmpChildren [MaxKeys + 2]*Node

	for i := 0; i < index; i++ {
		tmpKeys[i] = parent.keys[i]
		tmpChildren[i] = parent.children[i]
	}
	tmpChildren[index] = parent.children[index]
	tmpKeys[index] = key
	tmpChildren[index+1] = right
	for i := index; i < parent.n; i++ {
		tmpKeys[i+1] = parent.keys[i]
		tmpChildren[i+2] = parent.children[i+1]
	}

	newInternal := newNode(false)
	newInternal.parent = parent.parent

	mid := MaxKeys / 2
	promoted := tmpKeys[mid]

	parent.n = mid
	for i := 0; i < parent.n; i++ {
		parent.keys[i] = tmpKeys[i]
		parent.children[i] = tmpChildren[i]
	}
	parent.children[parent.n] = tmpChildren[parent.n]

	newInternal.n = MaxKeys - mid
	for i := 0; i < newInternal.n; i++ {
		newInternal.keys[i] = tmpKeys[mid+1+i]
		newInternal.children[i] = tmpChildren[mid+1+i]
		if newInternal.children[i] != nil {
			newInternal.children[i].parent = newInternal
		}
	}
	newInternal.children[newInternal.n] = tmpChildren[MaxKeys+1]
	if newInternal.children[newInternal.n] != nil {
		newInternal.children[newInternal.n].parent = newInternal
	}

	t.insertIntoParent(parent, promoted, newInternal)
}

// insertIntoNode adds key and its right child to an internal node that has
// room. The new child lands at children[index+1].
func insertIntoNode(node *Node, index int, key int, rightChild *Node) {
	for i := node.n; i > index; i-- {
		node.keys[i] = node.keys[i-1]
		node.children[i+1] = node.children[i]
	}
	node.keys[index] = key
	node.children[index+1] = rightChild
	if rightChild != nil {
		rightChild.parent = node
	}
	node.n++
}
