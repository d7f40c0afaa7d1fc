package companion

import "strings"

// SelectorSeparator separates alternatives in a rule's selector list.
const SelectorSeparator = ",\n"

// Merge filters generated candidates for original selector: empty ones and
// exact copies of original are dropped. Candidates are not compared to each
// other, so duplicates among them survive.
func Merge(original string, candidates []string) []string {
	var additions []string
	for _, candidate := range candidates {
		if len(candidate) == 0 || candidate == original {
			continue
		}
		additions = append(additions, candidate)
	}
	return additions
}

// AppendSelectors appends additions to selector list text.
func AppendSelectors(list string, additions []string) string {
	if len(additions) == 0 {
		return list
	}
	var sb strings.Builder
	sb.WriteString(list)
	for _, a := range additions {
		if sb.Len() > 0 {
			sb.WriteString(SelectorSeparator)
		}
		sb.WriteString(a)
	}
	return sb.String()
}
