package bptree

// Search returns the offset stored for key. The second return is false when
// the key is not present.
func (t *Tree) Search(key int) (int64, bool) {
	leaf := t.findLeaf(key)
	if leaf == nil {
		return 0, false
	}
	for i := 0; i < leaf.n; i++ {
		if leaf.keys[i] == key {
			return leaf.offsets[i], true
		}
	}
	return 0, false
}

// Scan visits every key/offset pair in ascending key order by following the
// leaf chain. It stops early if fn returns false.
func (t *Tree) Scan(fn func(key int, offset int64) bool) {
	for leaf := t.firstLeaf(); leaf != nil; leaf = leaf.next {
		for i := 0; i < leaf.n; i++ {
			if !fn(leaf.keys[i], leaf.offsets[i]) {
				return
			}
		}
	}
}

// Keys returns every key in ascending order.
func (t *Tree) Keys() []int {
	var keys []int
	t.Scan(func(key int, _ int64) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}
