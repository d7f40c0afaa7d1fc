package process

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"pcc/config"
	"pcc/state"
)

// buildOutputPath returns output file path for stylesheet. "src" is path of
// the source relative to what was requested on command line, its directory
// part is kept unless nodirs was requested. Output suffix from configuration
// goes between base name and extension.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	outDir := dst
	if !env.NoDirs {
		outDir = filepath.Join(dst, filepath.Dir(src))
	}

	ext := filepath.Ext(src)
	base := strings.TrimSuffix(filepath.Base(src), ext)
	if len(ext) == 0 {
		ext = ".css"
	}
	return filepath.Join(outDir, config.CleanFileName(base+env.Cfg.Output.Suffix)+ext)
}

// reportName returns unique name for debug report entry.
func reportName(kind string, n int, src string) string {
	return fmt.Sprintf("%s/%03d-%s.css", kind, n, slug.Make(src))
}
