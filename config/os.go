package config

import (
	"os"
	"unicode"
)

const fallbackFileName = "stylesheet"

func isControl(sym rune) bool {
	return sym == 0 || unicode.IsControl(sym)
}

// colorDisabled honors NO_COLOR convention (https://no-color.org) and dumb
// terminals.
func colorDisabled() bool {
	if v, ok := os.LookupEnv("NO_COLOR"); ok && len(v) > 0 {
		return true
	}
	return os.Getenv("TERM") == "dumb"
}
