package clipboard

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
)

// SystemSource exposes the live OS clipboard as a Source.
//
// The platform bridge (atotto/clipboard) only surfaces plain text portably;
// HTML, bitmap and storage-item formats report absent here. Snapshots built
// from richer hosts can inject their own Source implementation.
type SystemSource struct{}

// NewSystemSource returns the live OS clipboard view.
func NewSystemSource() *SystemSource {
	return &SystemSource{}
}

func (s *SystemSource) Text() (string, bool, error) {
	content, err := clipboard.ReadAll()
	if err != nil {
		return "", false, err
	}
	if content == "" {
		return "", false, nil
	}
	return content, true, nil
}

func (s *SystemSource) HTML() (string, bool, error) {
	return "", false, nil
}

func (s *SystemSource) Image() (*Bitmap, bool, error) {
	return nil, false, nil
}

func (s *SystemSource) StorageItems() ([]FileRef, bool, error) {
	return nil, false, nil
}

// WriteSystem pushes the snapshot's content back to the OS clipboard.
//
// Precedence mirrors what the platform bridge can carry: text wins, then the
// storage item paths are written as newline-separated text, then unwrapped
// HTML. Image-only snapshots cannot be pushed through the text bridge.
func WriteSystem(snap *Snapshot) error {
	if snap == nil {
		return errors.New("nil snapshot")
	}
	if text, ok := snap.Text(); ok {
		return clipboard.WriteAll(text)
	}
	if items, ok := snap.StorageItems(); ok && len(items) > 0 {
		paths := make([]string, 0, len(items))
		for _, it := range items {
			paths = append(paths, it.Path)
		}
		return clipboard.WriteAll(strings.Join(paths, "\n"))
	}
	if html, ok := snap.HTML(); ok {
		return clipboard.WriteAll(UnwrapHTML(html))
	}
	return errors.New("no writable clipboard format on snapshot")
}
