//go:build windows

package config

import (
	"os"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/term"
)

// device names Windows reserves in any directory, with any extension
var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// CleanFileName makes output file base name safe: characters Windows does not
// allow in names are removed, trailing dots and spaces are trimmed and
// reserved device names are prefixed. Empty result is replaced with fallback
// name.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if isControl(sym) || strings.ContainsRune(`<>":/\|?*`, sym) {
			return -1
		}
		return sym
	}, in)
	out = strings.TrimRight(out, ". ")
	if len(out) == 0 {
		return fallbackFileName
	}
	if _, ok := reservedNames[strings.ToUpper(out)]; ok {
		out = "_" + out
	}
	return out
}

// EnableColorOutput checks if colorized output is possible and enables VT100
// sequence processing in Windows console. Consoles before Windows 10 cannot do
// that.
func EnableColorOutput(stream *os.File) bool {
	if colorDisabled() {
		return false
	}
	if windows.RtlGetVersion().MajorVersion < 10 {
		return false
	}
	if !term.IsTerminal(int(stream.Fd())) {
		return false
	}

	var mode uint32
	console := windows.Handle(stream.Fd())
	if err := windows.GetConsoleMode(console, &mode); err != nil {
		return false
	}
	return windows.SetConsoleMode(console, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}
