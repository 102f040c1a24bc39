package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

type ZipCreator struct {
	fs afero.Fs
}

func NewZipCreator(fs afero.Fs) *ZipCreator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ZipCreator{fs: fs}
}

// CreateZip stores every file flat under its base name. An empty list
// produces a valid empty archive.
func (z *ZipCreator) CreateZip(ctx context.Context, filePaths []string, outputPath string) (err error) {
	zipFile, err := z.fs.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer func() {
		if cerr := zipFile.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close zip file: %w", cerr)
		}
	}()

	zipWriter := zip.NewWriter(zipFile)
	for _, fp := range filePaths {
		select {
		case <-ctx.Done():
			zipWriter.Close()
			return ctx.Err()
		default:
		}

		if err := z.addFile(zipWriter, fp); err != nil {
			zipWriter.Close()
			return fmt.Errorf("add %s to zip: %w", fp, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finish zip: %w", err)
	}
	return nil
}

func (z *ZipCreator) addFile(zw *zip.Writer, filename string) error {
	file, err := z.fs.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = filepath.Base(filename)
	// jpg frames are already compressed
	header.Method = zip.Deflate
	if filepath.Ext(filename) == ".jpg" {
		header.Method = zip.Store
	}

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
