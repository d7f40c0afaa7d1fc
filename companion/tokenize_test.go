package companion

import (
	"slices"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		fragment string
		base     string
		raws     []string
		keys     []string
	}{
		{fragment: "a", base: "a"},
		{fragment: "a:hover", base: "a", raws: []string{":hover"}, keys: []string{":hover"}},
		{fragment: ":hover", base: "", raws: []string{":hover"}, keys: []string{":hover"}},
		{fragment: "a.b#c:hover:focus", base: "a.b#c", raws: []string{":hover", ":focus"}, keys: []string{":hover", ":focus"}},
		{fragment: "a::before", base: "a", raws: []string{"::before"}, keys: []string{":before"}},
		{fragment: "li:nth-child(2n+1)", base: "li", raws: []string{":nth-child(2n+1)"}, keys: []string{":nth-child"}},
		{fragment: "a:hover.b#c", base: "a", raws: []string{":hover.b#c"}, keys: []string{":hover.b#c"}},
		{fragment: "a:not(:hover)", base: "a", raws: []string{":not(:hover)"}, keys: []string{":not"}},
		{fragment: `.sm\:flex:hover`, base: `.sm\:flex`, raws: []string{":hover"}, keys: []string{":hover"}},
		{fragment: `a[title="x:y"]:focus`, base: `a[title="x:y"]`, raws: []string{":focus"}, keys: []string{":focus"}},
		{fragment: "a:", base: "a:"},
		{fragment: "a:hover:", base: "a", raws: []string{":hover:"}, keys: []string{":hover:"}},
		{fragment: "a:is(b", base: "a", raws: []string{":is(b"}, keys: []string{":is"}},
	}

	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			base, occurrences := Tokenize(tt.fragment)
			if base != tt.base {
				t.Errorf("base = %q, want %q", base, tt.base)
			}
			var raws, keys []string
			for i, o := range occurrences {
				if o.Index != i {
					t.Errorf("occurrence %d has index %d", i, o.Index)
				}
				raws = append(raws, o.Raw)
				keys = append(keys, o.Key)
			}
			if !slices.Equal(raws, tt.raws) {
				t.Errorf("raws = %q, want %q", raws, tt.raws)
			}
			if !slices.Equal(keys, tt.keys) {
				t.Errorf("keys = %q, want %q", keys, tt.keys)
			}
		})
	}
}

func TestTokenize_Reassembles(t *testing.T) {
	for _, fragment := range []string{"a", "a:hover", `x\:y::after:focus`, "p:nth-of-type(2):hover.c", ":root"} {
		base, occurrences := Tokenize(fragment)
		got := base
		for _, o := range occurrences {
			got += o.Raw
		}
		if got != fragment {
			t.Errorf("Tokenize(%q) reassembled into %q", fragment, got)
		}
	}
}

func TestSplitFragments(t *testing.T) {
	tests := []struct {
		selector string
		want     []string
	}{
		{"a", []string{"a"}},
		{"a b", []string{"a", "b"}},
		{"a > b:hover", []string{"a", ">", "b:hover"}},
		{"a  b", []string{"a", "", "b"}},
		{"a:not(.b .c) d", []string{"a:not(.b .c)", "d"}},
		{`a[title="x y"] b`, []string{`a[title="x y"]`, "b"}},
		{`.a\ b c`, []string{`.a\ b`, "c"}},
		{"", []string{""}},
	}
	for _, tt := range tests {
		if got := SplitFragments(tt.selector); !slices.Equal(got, tt.want) {
			t.Errorf("SplitFragments(%q) = %q, want %q", tt.selector, got, tt.want)
		}
	}
}

func TestNormalizeEntry(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"hover", ":hover", true},
		{":hover", ":hover", true},
		{"::before", ":before", true},
		{" nth-child(2) ", ":nth-child", true},
		{"", "", false},
		{"::", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeEntry(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("normalizeEntry(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
