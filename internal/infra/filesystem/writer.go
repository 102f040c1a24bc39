package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"github.com/fiapx/fiapx-frame-extractor/internal/domain/port"
	"github.com/spf13/afero"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// FrameWriter stores encoded frames under one folder. Each frame is written
// to a temp file next to its target and renamed into place, so readers see
// either the previous file or the complete new one.
type FrameWriter struct {
	fs     afero.Fs
	folder string
}

func NewFrameWriter(fs afero.Fs, folder string) *FrameWriter {
	return &FrameWriter{fs: fs, folder: folder}
}

func (w *FrameWriter) Folder() string {
	return w.folder
}

func (w *FrameWriter) EnsureDir() error {
	if err := w.fs.MkdirAll(w.folder, dirPerm); err != nil {
		return fmt.Errorf("%w: create output folder %s: %v", entity.ErrWriteFailure, w.folder, err)
	}
	return nil
}

func (w *FrameWriter) Write(ctx context.Context, frame entity.OutputFrame) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := w.EnsureDir(); err != nil {
		return "", &entity.FrameError{Index: frame.Index, Op: "write", Err: err}
	}

	target := filepath.Join(w.folder, frame.Filename)
	if err := w.writeAtomic(target, frame.Data); err != nil {
		return "", &entity.FrameError{
			Index: frame.Index,
			Op:    "write",
			Err:   fmt.Errorf("%w: %s: %v", entity.ErrWriteFailure, target, err),
		}
	}
	return target, nil
}

func (w *FrameWriter) writeAtomic(target string, data []byte) error {
	tmp, err := afero.TempFile(w.fs, w.folder, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = w.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := w.fs.Chmod(tmpName, filePerm); err != nil {
		return err
	}
	if err := w.fs.Rename(tmpName, target); err != nil {
		return err
	}
	committed = true
	return nil
}

// WriterFactory hands out FrameWriters sharing one filesystem.
type WriterFactory struct {
	fs afero.Fs
}

func NewWriterFactory(fs afero.Fs) *WriterFactory {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &WriterFactory{fs: fs}
}

func (f *WriterFactory) ForFolder(folder string) port.FrameWriter {
	return NewFrameWriter(f.fs, folder)
}
