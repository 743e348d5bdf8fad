package tools

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/clipboard"
)

// TempFileArea writes paste-as-file content under a base directory. Each
// area owns one uuid-named folder created on first use: repeated transforms
// in a session overwrite the same clipboard file (so calling a tool twice
// lands on the same path), while separate sessions never clobber a file the
// user already pasted somewhere.
type TempFileArea struct {
	baseDir string

	mu  sync.Mutex
	dir string
}

func NewTempFileArea(baseDir string) *TempFileArea {
	return &TempFileArea{baseDir: strings.TrimSpace(baseDir)}
}

func (a *TempFileArea) WriteText(content string) (string, error) {
	dir, err := a.sessionDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "clipboard.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (a *TempFileArea) WriteImage(img *clipboard.Bitmap) (string, error) {
	if img == nil {
		return "", errors.New("nil image")
	}
	rgba := img.RGBA()
	if rgba == nil {
		return "", errors.New("empty image")
	}
	dir, err := a.sessionDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "clipboard.png")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, rgba); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

func (a *TempFileArea) sessionDir() (string, error) {
	if a == nil {
		return "", errors.New("nil file area")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dir != "" {
		return a.dir, nil
	}
	base := a.baseDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "clipforge-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	a.dir = dir
	return dir, nil
}
