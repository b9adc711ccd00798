package watchman

import "os"

// isPathPrefix reports whether ancestor is a directory prefix of
// descendant: descendant starts with ancestor's bytes and either the
// two are equal or the next byte in descendant is a path separator.
// This is what distinguishes "/a" (a true ancestor of "/a/b") from
// "/ab" (an unrelated sibling). Every containment decision in this
// package goes through this check, never a raw byte-prefix test.
func isPathPrefix(ancestor, descendant string) bool {
	if len(ancestor) > len(descendant) {
		return false
	}

	if descendant[:len(ancestor)] != ancestor {
		return false
	}

	if len(ancestor) == len(descendant) {
		return true
	}

	return isPathSeparator(descendant[len(ancestor)])
}

func isPathSeparator(b byte) bool {
	return b == '/' || b == os.PathSeparator
}
