package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/natural"
	"go.uber.org/multierr"

	"pcc/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty debug report for a run. When configured destination
// cannot be created report goes to temporary directory.
func (conf *ReporterConfig) Prepare(run uuid.UUID) (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{
		run:     run,
		created: time.Now(),
		entries: make(map[string]entry),
		file:    f,
	}, nil
}

// entry is either a file to be read when report is finalized or data
// captured when it was stored.
type entry struct {
	path  string
	data  []byte
	stamp time.Time
}

// Report accumulates everything necessary to troubleshoot a run: logs,
// configuration, source and resulting stylesheets. All methods could be
// called on nil Report, which means no report was requested.
type Report struct {
	mu      sync.Mutex
	run     uuid.UUID
	created time.Time
	entries map[string]entry
	file    *os.File
}

// Close writes report archive and closes it.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	err := multierr.Append(r.finalize(), r.file.Close())
	r.file = nil
	return err
}

// Name returns absolute name of report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store remembers file to be put into report under name. File is read when
// report is closed, so its final content is archived. Storing different file
// under the same name is a programming error.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	if p, err := filepath.Abs(path); err == nil {
		path = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, exists := r.entries[name]; exists && old.path != path {
		panic(fmt.Sprintf("attempt to overwrite report entry [%s]: was %q, now %q", name, old.path, path))
	}
	r.entries[name] = entry{path: path}
}

// StoreData puts data into report under name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("attempt to overwrite report entry [%s]", name))
	}
	r.entries[name] = entry{data: data, stamp: time.Now()}
}

// Snapshot puts content file has at the moment of the call into report.
func (r *Report) Snapshot(name, path string) error {
	if r == nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to snapshot %q: %w", path, err)
	}
	r.StoreData(name, data)
	return nil
}

// finalize writes manifest followed by every entry in manifest order. Files
// which do not exist anymore are skipped.
func (r *Report) finalize() (err error) {
	arc := zip.NewWriter(r.file)
	defer func() {
		err = multierr.Append(err, arc.Close())
	}()

	names, manifest := r.manifest()
	if err := saveFile(arc, "MANIFEST", time.Now(), manifest); err != nil {
		return err
	}

	for _, name := range names {
		e := r.entries[name]
		if len(e.path) == 0 {
			if err := saveFile(arc, name, e.stamp, bytes.NewReader(e.data)); err != nil {
				return err
			}
			continue
		}
		if err := saveEntry(arc, name, e.path); err != nil {
			return err
		}
	}
	return nil
}

// manifest lists entries in natural order, so "result/2" goes before "result/10".
func (r *Report) manifest() ([]string, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "run\t%s\ncreated\t%s\nversion\t%s (%s)\n\n",
		r.run, r.created.UTC().Format(time.RFC3339), misc.GetVersion(), misc.GetGitHash())

	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		names = append(names, k)
	}
	sort.Sort(natural.StringSlice(names))

	for _, name := range names {
		e := r.entries[name]
		if len(e.path) == 0 {
			fmt.Fprintf(buf, "%s\t%s\t%d bytes\n", e.stamp.UTC().Format(time.RFC3339), name, len(e.data))
			continue
		}
		fmt.Fprintf(buf, "-\t%s\t%s\n", name, e.path)
	}
	return names, buf
}

func saveEntry(arc *zip.Writer, name, path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveFile(arc, name, info.ModTime(), f)
}

func saveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
