package watchman

import "slices"

// pathtree.go implements the path prefix index as a compressed radix
// tree keyed by raw path bytes.
//
// The index supports the three lookups the pending core needs:
//   - search: exact match, O(key length)
//   - longestMatch: the entry whose key is the longest byte-prefix of
//     the query (boundary correctness is the caller's concern)
//   - iterPrefix: visit every entry whose key shares a byte prefix,
//     aborting as soon as the visitor mutates the tree
//
// Deletion during iteration invalidates the walk, so iterPrefix
// reports whether the visitor aborted; callers restart the scan until
// a full pass completes without mutation.

// pathNode is one node of the tree. Sibling labels always start with
// distinct bytes, and only the root has an empty label.
type pathNode struct {
	// label is the compressed edge consumed when descending into this
	// node. Never mutated in place after creation.
	label []byte
	// entry is non-nil when a stored key terminates at this node.
	entry *PendingChange
	// children is unordered; childIndex scans by first label byte.
	children []*pathNode
}

// pathTree maps path -> *PendingChange.
type pathTree struct {
	root  pathNode
	count int
}

// childIndex returns the index of the child whose label starts with b,
// or -1.
func (n *pathNode) childIndex(b byte) int {
	for i, c := range n.children {
		if c.label[0] == b {
			return i
		}
	}

	return -1
}

// search returns the entry stored under exactly key, or nil.
func (t *pathTree) search(key string) *PendingChange {
	n := &t.root
	rest := key

	for len(rest) > 0 {
		i := n.childIndex(rest[0])
		if i < 0 {
			return nil
		}

		c := n.children[i]
		if len(c.label) > len(rest) || rest[:len(c.label)] != string(c.label) {
			return nil
		}

		n = c
		rest = rest[len(c.label):]
	}

	return n.entry
}

// insert stores entry under key. The caller guarantees key is absent;
// a duplicate insert is an invariant violation.
func (t *pathTree) insert(key string, entry *PendingChange) {
	n := &t.root
	rest := key

	for {
		if len(rest) == 0 {
			if n.entry != nil {
				panic("pathTree: duplicate insert")
			}

			n.entry = entry
			t.count++

			return
		}

		i := n.childIndex(rest[0])
		if i < 0 {
			n.children = append(n.children, &pathNode{
				label: []byte(rest),
				entry: entry,
			})
			t.count++

			return
		}

		c := n.children[i]
		common := commonPrefixLen(c.label, rest)

		if common == len(c.label) {
			n = c
			rest = rest[common:]

			continue
		}

		// The new key diverges inside c's label: split the edge.
		split := &pathNode{
			label:    slices.Clone(c.label[:common]),
			children: []*pathNode{c},
		}
		c.label = c.label[common:]
		n.children[i] = split

		if common == len(rest) {
			split.entry = entry
		} else {
			split.children = append(split.children, &pathNode{
				label: []byte(rest[common:]),
				entry: entry,
			})
		}

		t.count++

		return
	}
}

// erase removes the mapping for key. No-op if key is absent.
func (t *pathTree) erase(key string) {
	if len(key) == 0 {
		if t.root.entry != nil {
			t.root.entry = nil
			t.count--
		}

		return
	}

	if t.eraseIn(&t.root, key) {
		t.count--
	}
}

// eraseIn removes key (relative to n) from n's subtree and compacts
// nodes made redundant by the removal. Reports whether an entry was
// removed.
func (t *pathTree) eraseIn(n *pathNode, rest string) bool {
	i := n.childIndex(rest[0])
	if i < 0 {
		return false
	}

	c := n.children[i]
	if len(c.label) > len(rest) || rest[:len(c.label)] != string(c.label) {
		return false
	}

	tail := rest[len(c.label):]
	if len(tail) == 0 {
		if c.entry == nil {
			return false
		}

		c.entry = nil
		t.compact(n, i)

		return true
	}

	if !t.eraseIn(c, tail) {
		return false
	}

	t.compact(n, i)

	return true
}

// compact removes or merges child i of n if the removal of an entry
// left it carrying no data: entryless leaves are dropped, entryless
// pass-through nodes are fused with their only child.
func (t *pathTree) compact(n *pathNode, i int) {
	c := n.children[i]
	if c.entry != nil {
		return
	}

	switch len(c.children) {
	case 0:
		n.children = slices.Delete(n.children, i, i+1)
	case 1:
		g := c.children[0]
		merged := make([]byte, 0, len(c.label)+len(g.label))
		merged = append(merged, c.label...)
		merged = append(merged, g.label...)
		g.label = merged
		n.children[i] = g
	}
}

// longestMatch returns the entry whose key is the longest stored key
// that is a byte-prefix of key, or nil. The entry's own Path carries
// the matched key.
func (t *pathTree) longestMatch(key string) *PendingChange {
	var best *PendingChange

	n := &t.root
	rest := key

	for {
		if n.entry != nil {
			best = n.entry
		}

		if len(rest) == 0 {
			return best
		}

		i := n.childIndex(rest[0])
		if i < 0 {
			return best
		}

		c := n.children[i]
		if len(c.label) > len(rest) || rest[:len(c.label)] != string(c.label) {
			return best
		}

		n = c
		rest = rest[len(c.label):]
	}
}

// iterPrefix invokes visit for every stored key that has prefix as a
// byte prefix. visit returns true to signal that it mutated the tree;
// the walk aborts immediately and iterPrefix returns true so the
// caller can restart. A completed pass returns false.
func (t *pathTree) iterPrefix(prefix string, visit func(key string, entry *PendingChange) bool) bool {
	n := &t.root
	rest := prefix
	key := make([]byte, 0, len(prefix)+16)

	for len(rest) > 0 {
		i := n.childIndex(rest[0])
		if i < 0 {
			return false
		}

		c := n.children[i]
		common := commonPrefixLen(c.label, rest)

		if common == len(c.label) {
			key = append(key, c.label...)
			n = c
			rest = rest[common:]

			continue
		}

		if common == len(rest) {
			// prefix ends inside c's edge: c's whole subtree matches.
			key = append(key, c.label...)

			return walkSubtree(c, key, visit)
		}

		// Diverged inside the edge: nothing stored under prefix.
		return false
	}

	return walkSubtree(n, key, visit)
}

// walkSubtree visits every entry in n's subtree in DFS order. Reports
// whether visit aborted the walk.
func walkSubtree(n *pathNode, key []byte, visit func(string, *PendingChange) bool) bool {
	if n.entry != nil && visit(string(key), n.entry) {
		return true
	}

	for _, c := range n.children {
		if walkSubtree(c, append(key, c.label...), visit) {
			return true
		}
	}

	return false
}

// size returns the number of stored keys.
func (t *pathTree) size() int {
	return t.count
}

// clear removes every mapping.
func (t *pathTree) clear() {
	t.root = pathNode{}
	t.count = 0
}

// commonPrefixLen returns the length of the shared prefix of a and b.
func commonPrefixLen(a []byte, b string) int {
	n := min(len(a), len(b))

	i := 0
	for i < n && a[i] == b[i] {
		i++
	}

	return i
}
