package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// scratchFile is a per-mode copy of the template handed to the renderer.
type scratchFile struct {
	path string
}

// scratchPath names the scratch file after the mode so parallel exports
// never share a path.
func scratchPath(dir string, mode Mode, templatePath string) string {
	ext := filepath.Ext(templatePath)
	if ext == "" {
		ext = ".scad"
	}
	return filepath.Join(dir, fmt.Sprintf("temp_%s%s", mode, ext))
}

// acquireScratch writes document to the mode's scratch path. A failed write
// leaves nothing behind.
func acquireScratch(dir string, mode Mode, templatePath, document string) (*scratchFile, error) {
	path := scratchPath(dir, mode, templatePath)
	if err := os.WriteFile(path, []byte(document), 0o644); err != nil {
		_ = os.Remove(path)
		return nil, NewError(KindIO, fmt.Sprintf("write scratch file %s", path), err)
	}
	return &scratchFile{path: path}, nil
}

// Release removes the scratch file. Removing an already missing file is not an error.
func (s *scratchFile) Release() error {
	if s == nil || s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
