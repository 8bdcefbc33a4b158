// Package colormerge finds near-duplicate solid colors in a design document
// and merges chosen groups into a single target color.
package colormerge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jsvensson/colormerge/internal/document"
	"github.com/jsvensson/colormerge/internal/format"
	"github.com/jsvensson/colormerge/internal/parser"
)

// Open parses the HCL document at path.
func Open(path string) (*document.Memory, error) {
	doc, err := parser.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	return doc, nil
}

// Save writes doc to path as canonical HCL. The file is replaced through a
// temporary file in the same directory so a failed write leaves it intact.
func Save(path string, doc *document.Memory) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(format.Write(doc)); err != nil {
		tmp.Close()
		return fmt.Errorf("saving document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}
