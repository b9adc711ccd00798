package watchman

import "testing"

func Test_IsPathPrefix_Distinguishes_Ancestors_From_Siblings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ancestor   string
		descendant string
		want       bool
	}{
		{"/a", "/a/b", true},
		{"/a", "/a", true},
		{"/a", "/a/b/c.txt", true},
		{"/a", "/ab", false},
		{"/ab", "/a/c", false},
		{"/a/b", "/a", false},
		{"/", "/a", true},
		{"/a/b.txt", "/a/b.txt", true},
		{"/a/b", "/a/bc", false},
		{"", "/a", true},
	}

	for _, tc := range cases {
		if got := isPathPrefix(tc.ancestor, tc.descendant); got != tc.want {
			t.Errorf("isPathPrefix(%q, %q) = %v, want %v",
				tc.ancestor, tc.descendant, got, tc.want)
		}
	}
}
