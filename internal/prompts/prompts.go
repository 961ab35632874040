// Package prompts bundles the default conversation templates. A deployment
// can shadow any of them with a file of the same relative path under
// PROMPTS_DIR.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	SystemFile = "system.md"
	piecesDir  = "pieces"
)

//go:embed library/*.md library/pieces/*.md
var bundled embed.FS

// PieceFile is the template path for a piece type, e.g. "pieces/purpose.md".
func PieceFile(pieceType string) string {
	return path.Join(piecesDir, strings.TrimSpace(pieceType)+".md")
}

// Source resolves template names to text.
type Source interface {
	Read(name string) (string, error)
}

// Bundled returns the templates compiled into the binary.
func Bundled() Source {
	sub, err := fs.Sub(bundled, "library")
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded library missing: %v", err))
	}
	return fsSource{fsys: sub}
}

// WithOverrides reads from dir first and falls back to base for any file
// dir does not contain. An empty dir returns base unchanged.
func WithOverrides(dir string, base Source) Source {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return base
	}
	return overlaySource{dir: dir, base: base}
}

type fsSource struct {
	fsys fs.FS
}

func (s fsSource) Read(name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("prompts: invalid template name %q", name)
	}
	b, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return "", fmt.Errorf("prompts: read %s: %w", name, err)
	}
	return string(b), nil
}

type overlaySource struct {
	dir  string
	base Source
}

func (s overlaySource) Read(name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("prompts: invalid template name %q", name)
	}
	b, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(name)))
	if err == nil {
		return string(b), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("prompts: read override %s: %w", name, err)
	}
	return s.base.Read(name)
}
