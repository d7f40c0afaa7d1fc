package companion

import "strings"

// Class is the classification of a pseudo occurrence.
type Class int

const (
	Eligible      Class = iota // gets a companion class
	Excluded                   // never transformed
	RestrictedOut              // not on restrict-to list
)

// String returns human readable name of classification.
func (c Class) String() string {
	switch c {
	case Eligible:
		return "eligible"
	case Excluded:
		return "excluded"
	case RestrictedOut:
		return "restricted"
	default:
		return "unknown"
	}
}

// Classify decides what to do with a pseudo occurrence identified by its
// normalized key. Exclusion is checked first, restriction only narrows what
// would be eligible otherwise.
func (c *Config) Classify(key string) Class {
	if c.isExcluded(key) || c.anyExcluded(strings.Split(key, ".")) || c.anyExcluded(strings.Split(key, "#")) {
		return Excluded
	}
	if c.restrict != nil {
		if _, ok := c.restrict[key]; !ok {
			return RestrictedOut
		}
	}
	return Eligible
}

func (c *Config) isExcluded(key string) bool {
	_, ok := c.exclude[key]
	return ok
}

// anyExcluded guards against chains like ":hover.some-class" where one of the
// qualifier segments is excluded on its own.
func (c *Config) anyExcluded(segments []string) bool {
	for _, s := range segments {
		if c.isExcluded(s) {
			return true
		}
	}
	return false
}

// excludesSelector reports whether whole selector is an excluded pseudo like
// ":root" or ":host" and should not be looked at.
func (c *Config) excludesSelector(selector string) bool {
	return strings.HasPrefix(selector, ":") && c.isExcluded(":"+strings.TrimLeft(selector, ":"))
}
