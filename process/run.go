// Package process implements program commands working on stylesheets.
package process

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"pcc/archive"
	"pcc/companion"
	"pcc/config"
	"pcc/css"
	"pcc/state"
)

// processor keeps what is shared by all stylesheets of a single run.
type processor struct {
	env    *state.LocalEnv
	tr     *companion.Transformer
	parser *css.Parser
	log    *zap.Logger
	// number of stylesheets seen, used to name report entries
	count int
}

func newProcessor(env *state.LocalEnv, log *zap.Logger, options ...companion.Option) *processor {
	options = append(options, companion.WithLogger(log))
	return &processor{
		env:    env,
		tr:     companion.New(options...),
		parser: css.NewParser(log),
		log:    log,
	}
}

// lookupEncoding returns nil for unknown and unsupported character sets.
func lookupEncoding(name string, log *zap.Logger) encoding.Encoding {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", name), zap.Error(err))
		return nil
	}
	return enc
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("process")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	if cp := cmd.String("charset"); len(cp) > 0 {
		if enc := lookupEncoding(cp, log); enc != nil {
			env.CodePage = enc
			log.Debug("Decoding stylesheets without declared charset", zap.String("charset", cp))
		}
	}
	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		if enc := lookupEncoding(cp, log); enc != nil {
			env.ZipCodePage = enc
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", cp))
		}
	}

	options, err := companionOptions(cmd, &env.Cfg.Companion)
	if err != nil {
		return err
	}
	p := newProcessor(env, log, options...)
	if env.Rpt != nil {
		// configuration with command line overrides applied
		if data, err := config.Dump(env.Cfg); err == nil {
			env.Rpt.StoreData("config/effective.yaml", data)
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("run", env.RunID),
		zap.Bool("all_combinations", p.tr.Config().AllCombinations()))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)), zap.Int("stylesheets", p.count))
	}(time.Now())

	return p.process(ctx, src, dst)
}

// process determines the input type (directory, archive, or single file) and
// processes accordingly.
func (p *processor) process(ctx context.Context, src, dst string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := p.processDir(ctx, head, dst); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			return nil
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := p.processArchive(ctx, head, tail, "", dst); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			return nil
		}

		if len(tail) == 0 && isStylesheetFile(head) {
			return p.processFile(ctx, head, filepath.Base(head), dst)
		}
		return fmt.Errorf("input was not recognized as stylesheet (%s)", head)
	}
	return fmt.Errorf("input source was not found (%s)", src)
}

// processDir walks directory tree finding stylesheets and archives and
// processes them in natural order. Failure to process a file does not stop the
// walk, all failures are returned together.
func (p *processor) processDir(ctx context.Context, dir, dst string) error {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			p.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.Mode().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return natural.Less(paths[i], paths[j])
	})

	var errs error
	count := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}

		isArchive, err := isArchiveFile(path)
		if err != nil {
			p.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if isArchive {
			count++
			if err := p.processArchive(ctx, path, "", filepath.Dir(rel), dst); err != nil {
				p.log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			}
			continue
		}
		if !isStylesheetFile(path) {
			p.log.Debug("Skipping file, not recognized as stylesheet or archive", zap.String("file", path))
			continue
		}

		count++
		if err := p.processFile(ctx, path, rel, dst); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if count == 0 {
		p.log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return errs
}

func (p *processor) processFile(ctx context.Context, path, src, dst string) error {
	file, err := os.Open(path)
	if err != nil {
		p.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		return err
	}
	defer file.Close()

	if err := p.processStylesheet(ctx, file, src, dst); err != nil {
		p.log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// processArchive walks all stylesheets inside archive located under "pathIn"
// and processes them. Output keeps archive structure under "pathOut".
func (p *processor) processArchive(ctx context.Context, path, pathIn, pathOut, dst string) error {
	var errs error
	count := 0

	err := archive.Walk(ctx, path, pathIn, archive.WithExt(".css"), func(arc string, f *zip.File) error {
		count++

		r, err := f.Open()
		if err != nil {
			p.log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", f.FileHeader.Name, err))
			return nil
		}
		defer r.Close()

		pathInArchive := f.FileHeader.Name
		if cp := p.env.ZipCodePage; cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				p.log.Warn("Unable to convert archive name from specified encoding",
					zap.String("path", pathInArchive), zap.Error(err))
			}
		}
		if err := p.processStylesheet(ctx, r, filepath.Join(pathOut, filepath.FromSlash(pathInArchive)), dst); err != nil {
			p.log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", f.FileHeader.Name, err))
		}
		return nil
	})
	if err != nil {
		return multierr.Append(errs, err)
	}
	if count == 0 {
		if len(pathIn) > 0 {
			return fmt.Errorf("no stylesheets found in archive under (%s)", pathIn)
		}
		p.log.Debug("Nothing to process", zap.String("archive", path))
	}
	return errs
}

// processStylesheet processes single stylesheet. "src" is part of the source
// path (always including file name) relative to the original path. When actual
// file was specified it will be just base file name without a path. When
// looking inside archive or directory it will be relative path inside archive
// or directory (including base file name). "dst" is the destination directory
// where the resulting file should be written.
func (p *processor) processStylesheet(ctx context.Context, r io.Reader, src, dst string) (rerr error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		outputName string
		stats      Stats
	)

	p.count++
	n := p.count

	p.log.Info("Stylesheet processing starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			p.log.Error("Stylesheet processing ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("processing panic: %v", r)
		} else if rerr == nil {
			p.log.Info("Stylesheet processing completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName),
				zap.Int("rules", stats.Rules), zap.Int("selectors", stats.Selectors), zap.Int("added", stats.Added))
		}
	}(time.Now())

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet (%s): %w", src, err)
	}
	p.env.Rpt.StoreData(reportName("source", n, src), data)

	text, from, err := decode(data, p.env.CodePage)
	if err != nil {
		return fmt.Errorf("unable to decode stylesheet (%s): %w", src, err)
	}

	sheet := p.parser.Parse(text, src)
	for _, w := range sheet.Warnings {
		p.log.Warn("Stylesheet problem", zap.String("file", src), zap.String("warning", w))
	}
	if len(from) > 0 {
		p.log.Debug("Stylesheet converted to UTF-8", zap.String("file", src), zap.String("charset", from))
		sheet.SetCharset("UTF-8")
	}

	stats = Transform(sheet, p.tr)

	outputName = buildOutputPath(src, dst, p.env)
	if err := p.prepareOutput(outputName); err != nil {
		return err
	}
	if err := writeStylesheet(sheet, outputName); err != nil {
		return fmt.Errorf("unable to write stylesheet (%s): %w", outputName, err)
	}

	p.env.Rpt.Store(reportName("result", n, src), outputName)
	return nil
}

func (p *processor) prepareOutput(outputName string) error {
	if _, err := os.Stat(outputName); err == nil {
		if !p.env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		p.log.Warn("Overwriting existing file", zap.String("file", outputName))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}

func writeStylesheet(sheet *css.Stylesheet, name string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	_, err = sheet.WriteTo(f)
	return err
}
