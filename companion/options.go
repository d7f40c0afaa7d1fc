package companion

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultPrefix is prepended to every companion class name unless overridden.
const DefaultPrefix = `\:`

// alwaysExcluded lists structural pseudo-classes which are never transformed
// regardless of user provided exclusions.
var alwaysExcluded = []string{":root", ":host", ":host-context", ":global"}

// DefaultExclude returns pseudo names excluded when no exclusions were
// explicitly requested.
func DefaultExclude() []string {
	return []string{":before", ":after"}
}

// Option configures a Transformer.
type Option func(*settings)

type settings struct {
	exclude         []string
	excludeSet      bool
	restrictTo      []string
	allCombinations bool
	module          bool
	prefix          string
	log             *zap.Logger
}

// WithExclude replaces default exclusions with names. Calling it without
// arguments leaves only structural pseudo-classes excluded.
func WithExclude(names ...string) Option {
	return func(s *settings) {
		s.exclude = append([]string{}, names...)
		s.excludeSet = true
	}
}

// WithRestrictTo limits transformation to listed pseudo-classes. An empty list
// removes the restriction.
func WithRestrictTo(names ...string) Option {
	return func(s *settings) {
		s.restrictTo = append([]string{}, names...)
	}
}

// WithAllCombinations requests every mix of original and companion matching
// instead of a single fully replaced selector.
//
// Output grows as 2^k per compound selector with k eligible pseudo-classes and
// is multiplied across descendant parts of a selector. Nothing caps it, use
// exclusions or restrictions to keep it in check.
func WithAllCombinations(all bool) Option {
	return func(s *settings) {
		s.allCombinations = all
	}
}

// WithModule wraps companion classes in :global() so CSS modules leave them
// alone.
func WithModule(module bool) Option {
	return func(s *settings) {
		s.module = module
	}
}

// WithPrefix sets prefix for companion class names, empty prefix is allowed.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		s.prefix = prefix
	}
}

// WithLogger sets logger for debug output.
func WithLogger(log *zap.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// Config is immutable classification and generation state shared by all
// selectors processed in a single run.
type Config struct {
	exclude         map[string]struct{}
	restrict        map[string]struct{} // nil - no restriction
	allCombinations bool
	module          bool
	prefix          string
}

func newConfig(s *settings) *Config {
	c := &Config{
		exclude:         make(map[string]struct{}),
		allCombinations: s.allCombinations,
		module:          s.module,
		prefix:          s.prefix,
	}
	for _, name := range alwaysExcluded {
		c.exclude[name] = struct{}{}
	}
	exclude := s.exclude
	if !s.excludeSet {
		exclude = DefaultExclude()
	}
	for _, name := range exclude {
		if key, ok := normalizeEntry(name); ok {
			c.exclude[key] = struct{}{}
		}
	}
	for _, name := range s.restrictTo {
		key, ok := normalizeEntry(name)
		if !ok {
			continue
		}
		if c.restrict == nil {
			c.restrict = make(map[string]struct{})
		}
		c.restrict[key] = struct{}{}
	}
	return c
}

// AllCombinations reports whether combinatorial mode is on.
func (c *Config) AllCombinations() bool {
	return c.allCombinations
}

// normalizeEntry brings user supplied pseudo name to the classification key
// form, empty entries are rejected.
func normalizeEntry(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if len(strings.TrimLeft(name, ":")) == 0 {
		return "", false
	}
	return normalize(name), true
}

// normalize collapses leading colons into one, drops functional argument and
// everything after it and removes stray closing parentheses.
func normalize(name string) string {
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	name = strings.ReplaceAll(name, ")", "")
	return ":" + strings.TrimLeft(name, ":")
}
