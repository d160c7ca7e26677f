// Package publish writes artifacts so that readers only ever observe the
// complete previous file or the complete new one.
package publish

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tartampluch/go-dailydash/internal/config"
)

// Publisher replaces files by writing a temporary sibling and renaming it
// over the destination. The temporary file lives in the destination's
// directory so the rename never crosses a filesystem.
type Publisher struct {
	Perm fs.FileMode

	createTemp func(dir, pattern string) (*os.File, error)
	write      func(f *os.File, data []byte) error
	rename     func(oldpath, newpath string) error
}

// New returns a Publisher producing world-readable files.
func New() *Publisher {
	return &Publisher{Perm: config.FilePermPublic}
}

// Publish atomically replaces path with data. On any failure the temporary
// file is removed, path is left untouched and the error is returned.
func (p *Publisher) Publish(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, config.DirPermPublic); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPublish, err)
	}

	tmp, err := p.createTempFn()(dir, fmt.Sprintf(config.TempFilePattern, filepath.Base(path)))
	if err != nil {
		return fmt.Errorf("%s: creating temporary file: %w", config.ErrPublish, err)
	}
	tmpPath := tmp.Name()

	fail := func(step string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%s: %s: %w", config.ErrPublish, step, err)
	}

	// Write, sync, chmod, close, in that order.
	if err := p.writeFn()(tmp, data); err != nil {
		return fail("writing temporary file", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temporary file", err)
	}
	if err := tmp.Chmod(p.perm()); err != nil {
		return fail("setting permissions", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%s: closing temporary file: %w", config.ErrPublish, err)
	}

	if err := p.renameFn()(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%s: renaming into place: %w", config.ErrPublish, err)
	}

	// Make the rename itself durable.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	slog.Info(config.MsgPublished,
		config.LogKeyComponent, config.CompPublisher,
		config.LogKeyPath, path,
		config.LogKeySizeBytes, len(data))
	return nil
}

func (p *Publisher) perm() fs.FileMode {
	if p.Perm == 0 {
		return config.FilePermPublic
	}
	return p.Perm
}

func (p *Publisher) createTempFn() func(dir, pattern string) (*os.File, error) {
	if p.createTemp != nil {
		return p.createTemp
	}
	return os.CreateTemp
}

func (p *Publisher) writeFn() func(f *os.File, data []byte) error {
	if p.write != nil {
		return p.write
	}
	return func(f *os.File, data []byte) error {
		_, err := f.Write(data)
		return err
	}
}

func (p *Publisher) renameFn() func(oldpath, newpath string) error {
	if p.rename != nil {
		return p.rename
	}
	return os.Rename
}
