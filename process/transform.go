package process

import (
	"pcc/companion"
	"pcc/css"
)

// Stats describes what was done to a stylesheet.
type Stats struct {
	Rules     int // qualified rules visited
	Selectors int // selectors found in those rules
	Added     int // companion selectors added
}

// Transform extends selector list of every rule in sheet, including nested
// ones, with companion selectors.
func Transform(sheet *css.Stylesheet, tr *companion.Transformer) Stats {
	var st Stats
	sheet.WalkRules(func(r *css.Rule) {
		st.Rules++
		st.Selectors += len(r.Selectors)
		out := tr.Rule(r.Selectors)
		st.Added += len(out) - len(r.Selectors)
		r.Selectors = out
	})
	return st
}
