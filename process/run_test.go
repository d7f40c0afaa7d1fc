package process

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"

	"pcc/config"
	"pcc/state"
)

const (
	sampleCSS = "a:hover { color: red; }\n"
	sampleOut = "a:hover,\na.\\:hover {\n  color: red;\n}\n"
)

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	env.Cfg = cfg
	return ctx, env
}

func newTestProcessor(env *state.LocalEnv) *processor {
	return newProcessor(env, env.Log, env.Cfg.Companion.Options()...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestProcess_File(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "style.css")
	dst := t.TempDir()
	writeFile(t, src, sampleCSS)

	p := newTestProcessor(env)
	if err := p.process(ctx, src, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "style.css")); got != sampleOut {
		t.Errorf("output = %q, want %q", got, sampleOut)
	}
	if p.count != 1 {
		t.Errorf("count = %d, want 1", p.count)
	}
}

func TestProcess_Overwrite(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "style.css")
	dst := t.TempDir()
	writeFile(t, src, sampleCSS)
	writeFile(t, filepath.Join(dst, "style.css"), "old")

	p := newTestProcessor(env)
	if err := p.process(ctx, src, dst); err == nil {
		t.Fatal("process() expected error for existing output")
	}
	if got := readFile(t, filepath.Join(dst, "style.css")); got != "old" {
		t.Errorf("existing output was modified: %q", got)
	}

	env.Overwrite = true
	if err := p.process(ctx, src, dst); err != nil {
		t.Fatalf("process() with overwrite error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "style.css")); got != sampleOut {
		t.Errorf("output = %q, want %q", got, sampleOut)
	}
}

func TestProcess_InPlace(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "style.css")
	writeFile(t, src, sampleCSS)
	env.Overwrite = true

	if err := newTestProcessor(env).process(ctx, src, dir); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readFile(t, src); got != sampleOut {
		t.Errorf("output = %q, want %q", got, sampleOut)
	}
}

func TestProcess_Suffix(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "style.css")
	writeFile(t, src, sampleCSS)
	env.Cfg.Output.Suffix = ".companion"

	if err := newTestProcessor(env).process(ctx, src, dir); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "style.companion.css")); got != sampleOut {
		t.Errorf("output = %q, want %q", got, sampleOut)
	}
	if got := readFile(t, src); got != sampleCSS {
		t.Errorf("source was modified: %q", got)
	}
}

func TestProcess_Directory(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "a.css"), sampleCSS)
	writeFile(t, filepath.Join(src, "nested", "b.css"), "b:focus { color: blue; }")
	writeFile(t, filepath.Join(src, "readme.txt"), "not a stylesheet")
	writeZip(t, filepath.Join(src, "pack", "themes.zip"), map[string]string{
		"themes/dark.css": "p:active { color: black; }",
		"themes/info.txt": "ignored",
	})

	p := newTestProcessor(env)
	if err := p.process(ctx, src, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}

	want := map[string]string{
		"a.css":                sampleOut,
		"nested/b.css":         "b:focus,\nb.\\:focus {\n  color: blue;\n}\n",
		"pack/themes/dark.css": "p:active,\np.\\:active {\n  color: black;\n}\n",
	}
	for rel, content := range want {
		if got := readFile(t, filepath.Join(dst, filepath.FromSlash(rel))); got != content {
			t.Errorf("%s = %q, want %q", rel, got, content)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, "readme.txt")); !os.IsNotExist(err) {
		t.Error("non stylesheet file should not be processed")
	}
	if p.count != 3 {
		t.Errorf("count = %d, want 3", p.count)
	}
}

func TestProcess_DirectoryNoDirs(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "nested", "deep", "b.css"), sampleCSS)
	env.NoDirs = true

	if err := newTestProcessor(env).process(ctx, src, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "b.css")); got != sampleOut {
		t.Errorf("output = %q, want %q", got, sampleOut)
	}
}

func TestProcess_DirectoryContinuesAfterFailure(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := t.TempDir()
	dst := t.TempDir()
	writeFile(t, filepath.Join(src, "1.css"), sampleCSS)
	writeFile(t, filepath.Join(src, "2.css"), `@charset "no-such-charset"; a:hover {}`)
	writeFile(t, filepath.Join(src, "10.css"), sampleCSS)

	err := newTestProcessor(env).process(ctx, src, dst)
	if err == nil {
		t.Fatal("process() expected error for undecodable stylesheet")
	}
	if !strings.Contains(err.Error(), "2.css") {
		t.Errorf("error does not name failed file: %v", err)
	}
	for _, name := range []string{"1.css", "10.css"} {
		if got := readFile(t, filepath.Join(dst, name)); got != sampleOut {
			t.Errorf("%s = %q, want %q", name, got, sampleOut)
		}
	}
}

func TestProcess_ArchivePath(t *testing.T) {
	ctx, env := setupTestEnv(t)
	arc := filepath.Join(t.TempDir(), "site.zip")
	dst := t.TempDir()
	writeZip(t, arc, map[string]string{
		"css/main.css":  sampleCSS,
		"css/print.css": "a:visited { color: gray; }",
		"other/x.css":   sampleCSS,
	})

	p := newTestProcessor(env)
	if err := p.process(ctx, filepath.Join(arc, "css", "main.css"), dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if got := readFile(t, filepath.Join(dst, "css", "main.css")); got != sampleOut {
		t.Errorf("output = %q, want %q", got, sampleOut)
	}
	if p.count != 1 {
		t.Errorf("count = %d, want 1", p.count)
	}

	if err := p.process(ctx, filepath.Join(arc, "missing"), dst); err == nil {
		t.Error("process() expected error for path absent in archive")
	}
}

func TestProcess_Charset(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "ru.css")
	dst := t.TempDir()

	encoded, err := charmap.Windows1251.NewEncoder().String(`@charset "windows-1251";` + "\n" + `a:hover::after { content: "Привет"; }`)
	if err != nil {
		t.Fatalf("unable to encode test data: %v", err)
	}
	writeFile(t, src, encoded)

	if err := newTestProcessor(env).process(ctx, src, dst); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	want := "@charset \"UTF-8\";\na:hover::after,\na.\\:hover::after {\n  content: \"Привет\";\n}\n"
	if got := readFile(t, filepath.Join(dst, "ru.css")); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestProcess_NotFound(t *testing.T) {
	ctx, env := setupTestEnv(t)
	dir := t.TempDir()
	p := newTestProcessor(env)

	if err := p.process(ctx, filepath.Join(dir, "missing.css"), dir); err == nil {
		t.Error("process() expected error for missing source")
	}

	txt := filepath.Join(dir, "readme.txt")
	writeFile(t, txt, "text")
	if err := p.process(ctx, txt, dir); err == nil {
		t.Error("process() expected error for non stylesheet source")
	}
	if err := p.process(ctx, filepath.Join(txt, "inner.css"), dir); err == nil {
		t.Error("process() expected error for path below regular file")
	}
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "style.css")
	writeFile(t, src, sampleCSS)

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := newTestProcessor(env).process(ctx, src, t.TempDir()); !errors.Is(err, context.Canceled) {
		t.Errorf("process() error = %v, want context.Canceled", err)
	}
}

func TestRun_Command(t *testing.T) {
	ctx, env := setupTestEnv(t)
	src := filepath.Join(t.TempDir(), "style.css")
	dst := t.TempDir()
	writeFile(t, src, "a:hover:focus { color: red; }")

	cmd := &cli.Command{Name: "process", Flags: Flags(), Action: Run}
	if err := cmd.Run(ctx, []string{"process", "--module", "--prefix", "is-", "--restrict-to", "hover", src, dst}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "a:hover:focus,\na:global(.is-hover):focus {\n  color: red;\n}\n"
	if got := readFile(t, filepath.Join(dst, "style.css")); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	// overrides are visible in configuration
	c := env.Cfg.Companion
	if !c.Module || c.Prefix != "is-" || len(c.RestrictTo) != 1 {
		t.Errorf("configuration was not updated: %+v", c)
	}
}

func TestRun_NoSource(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	cmd := &cli.Command{Name: "process", Flags: Flags(), Action: Run}
	if err := cmd.Run(ctx, []string{"process"}); err == nil {
		t.Error("Run() expected error without source")
	}
}

func TestSelector_Command(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "defaults",
			args: []string{"a:hover, b:focus"},
			want: "a:hover,\nb:focus,\na.\\:hover,\nb.\\:focus\n",
		},
		{
			name: "all combinations",
			args: []string{"--all", "a:hover:focus"},
			want: "a:hover:focus,\na:hover.\\:focus,\na.\\:hover:focus,\na.\\:hover.\\:focus\n",
		},
		{
			name: "excluded",
			args: []string{"--exclude", "hover", "a:hover::before"},
			want: "a:hover::before,\na:hover.\\:before\n",
		},
		{
			name: "several lists",
			args: []string{":root", "p:active"},
			want: ":root\np:active,\np.\\:active\n",
		},
		{
			name: "functional argument stays single compound",
			args: []string{"a:not(.b .c)"},
			want: "a:not(.b .c),\na.\\:not\\(\\.b\\ \\.c\\)\n",
		},
		{
			name: "not a selector",
			args: []string{"a { color: red }", "p"},
			want: "p\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := setupTestEnv(t)
			var buf bytes.Buffer
			cmd := &cli.Command{Name: "selector", Flags: CompanionFlags(), Action: Selector, Writer: &buf}
			if err := cmd.Run(ctx, append([]string{"selector"}, tt.args...)); err != nil {
				t.Fatalf("Selector() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestSelector_InvalidOverrides(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"comma in prefix", []string{"--prefix", "x, y", "a:hover"}},
		{"brace in prefix", []string{"--prefix", "x{", "a:hover"}},
		{"empty exclude entry", []string{"--exclude", "", "a:hover"}},
		{"empty restrict entry", []string{"--restrict-to", "", "a:hover"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _ := setupTestEnv(t)
			var buf bytes.Buffer
			cmd := &cli.Command{Name: "selector", Flags: CompanionFlags(), Action: Selector, Writer: &buf}
			if err := cmd.Run(ctx, append([]string{"selector"}, tt.args...)); err == nil {
				t.Errorf("Selector() expected error, output %q", buf.String())
			}
			if buf.Len() != 0 {
				t.Errorf("nothing should be printed, got %q", buf.String())
			}
		})
	}
}

func TestSelector_NoArgs(t *testing.T) {
	ctx, _ := setupTestEnv(t)
	cmd := &cli.Command{Name: "selector", Flags: CompanionFlags(), Action: Selector, Writer: &bytes.Buffer{}}
	if err := cmd.Run(ctx, []string{"selector"}); err == nil {
		t.Error("Selector() expected error without arguments")
	}
}
