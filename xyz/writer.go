package xyz

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-tilefetch/tile"
)

// Writer implements tile.Writer interface for tiles in XYZ format.
//
// Tile files are written to a temporary file next to the destination and renamed into place,
// so a tile path either does not exist or holds complete tile data.
type Writer struct {
	filePattern string
}

// NewWriter creates a new Writer for the given file pattern (e.g. "/home/user/tiles/{z}/{x}/{y}.png").
func NewWriter(filePattern string) (*Writer, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	return &Writer{filePattern}, nil
}

// Path returns the file path of the tile.
func (w *Writer) Path(tileID tile.ID) string {
	return formatPattern(w.filePattern, tileID)
}

// Exists reports whether a file for the tile is already present.
func (w *Writer) Exists(tileID tile.ID) (bool, error) {
	_, err := os.Stat(w.Path(tileID))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) (err error) {
	filePath := w.Path(tileID)

	dirPath := filepath.Dir(filePath)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dirPath, ".tile-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmpFile.Close()
			os.Remove(tmpFile.Name())
		}
	}()

	if _, err = tmpFile.Write(tileData); err != nil {
		return err
	}
	if err = tmpFile.Chmod(0644); err != nil {
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	return os.Rename(tmpFile.Name(), filePath)
}

func (w *Writer) Finalize() error {
	return nil
}
