package clipboard

import (
	"image"
	"path/filepath"
	"strings"
	"sync"
)

// FormatKind is a clipboard content kind.
type FormatKind string

const (
	FormatText  FormatKind = "Text"
	FormatHTML  FormatKind = "Html"
	FormatImage FormatKind = "Image"
	FormatFile  FormatKind = "File"
)

// FileKind distinguishes storage item entries.
type FileKind string

const (
	FileKindFile   FileKind = "file"
	FileKindFolder FileKind = "folder"
)

// FolderExtension is the literal extension token reported for folders.
const FolderExtension = "folder"

// FileRef points at a storage item on disk.
type FileRef struct {
	Path string
	Kind FileKind
}

// Extension returns the lower-cased file extension, or "folder" for folders.
func (f FileRef) Extension() string {
	if f.Kind == FileKindFolder {
		return FolderExtension
	}
	return strings.ToLower(filepath.Ext(f.Path))
}

// Bitmap is an opaque raw-pixel handle (RGBA, 8 bits per channel).
type Bitmap struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
}

// RGBA adapts the bitmap to the stdlib image model without copying pixels.
func (b *Bitmap) RGBA() *image.RGBA {
	if b == nil || b.Width <= 0 || b.Height <= 0 {
		return nil
	}
	stride := b.Stride
	if stride <= 0 {
		stride = 4 * b.Width
	}
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: stride,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// BitmapFromImage copies an image into a Bitmap handle.
func BitmapFromImage(img image.Image) *Bitmap {
	if img == nil {
		return nil
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x-bounds.Min.X, y-bounds.Min.Y, img.At(x, y))
		}
	}
	return &Bitmap{
		Pix:    rgba.Pix,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Stride: rgba.Stride,
	}
}

// FormatDescriptor describes one available clipboard format.
//
// Descriptors are derived, never stored: they are recomputed on every query
// against the current content.
type FormatDescriptor struct {
	Kind       FormatKind
	Extensions []string
}

// Source is the external clipboard view the snapshot copies from.
//
// Each accessor reports (value, present, error). A nil Source means there is
// nothing on the clipboard at all.
type Source interface {
	Text() (string, bool, error)
	HTML() (string, bool, error)
	Image() (*Bitmap, bool, error)
	StorageItems() ([]FileRef, bool, error)
}

// Probe inspects a source and reports the available formats without
// materializing content beyond what format detection needs.
//
// Probe never fails: a per-format enumeration error drops that format from
// the result and leaves the formats already detected in place.
func Probe(src Source) []FormatDescriptor {
	if src == nil {
		return nil
	}
	var out []FormatDescriptor
	if _, ok, err := src.Text(); err == nil && ok {
		out = append(out, FormatDescriptor{Kind: FormatText})
	}
	if _, ok, err := src.HTML(); err == nil && ok {
		out = append(out, FormatDescriptor{Kind: FormatHTML})
	}
	if _, ok, err := src.Image(); err == nil && ok {
		out = append(out, FormatDescriptor{Kind: FormatImage})
	}
	if items, ok, err := src.StorageItems(); err == nil && ok {
		out = append(out, FormatDescriptor{Kind: FormatFile, Extensions: extensionsOf(items)})
	}
	return out
}

func extensionsOf(items []FileRef) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Extension())
	}
	return out
}

// Snapshot is the in-memory multi-format copy of clipboard content,
// decoupled from the live OS clipboard. Fields are mutually optional and
// independently settable or absent.
//
// All access is mutex-guarded so a tool surface exposed to concurrent
// callers cannot observe a half-written snapshot.
type Snapshot struct {
	mu sync.Mutex

	text    string
	hasText bool

	html    string
	hasHTML bool

	image *Bitmap

	storageItems []FileRef
	hasStorage   bool
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Reset discards all current content and repopulates the snapshot from src.
//
// It returns false when src is nil (nothing to copy); the snapshot is still
// cleared in that case. Per-format copy failures are best-effort: a failing
// format is skipped and the remaining formats are still copied, and Reset
// returns true regardless.
func (s *Snapshot) Reset(src Source) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	if src == nil {
		return false
	}

	if text, ok, err := src.Text(); err == nil && ok {
		s.text = text
		s.hasText = true
	}
	if html, ok, err := src.HTML(); err == nil && ok {
		s.html = WrapHTML(html)
		s.hasHTML = true
	}
	if img, ok, err := src.Image(); err == nil && ok && img != nil {
		s.image = img
	}
	if items, ok, err := src.StorageItems(); err == nil && ok {
		s.storageItems = append([]FileRef(nil), items...)
		s.hasStorage = true
	}
	return true
}

func (s *Snapshot) clearLocked() {
	s.text = ""
	s.hasText = false
	s.html = ""
	s.hasHTML = false
	s.image = nil
	s.storageItems = nil
	s.hasStorage = false
}

// Text returns the current text content, if present.
func (s *Snapshot) Text() (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.hasText
}

// SetText replaces the text content.
func (s *Snapshot) SetText(text string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.hasText = true
}

// HTML returns the current HTML content in its wrapped clipboard form.
func (s *Snapshot) HTML() (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.html, s.hasHTML
}

// SetHTML stores html wrapped in the canonical clipboard fragment format.
func (s *Snapshot) SetHTML(html string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.html = WrapHTML(html)
	s.hasHTML = true
}

// Image returns the current bitmap, if present.
func (s *Snapshot) Image() (*Bitmap, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return nil, false
	}
	return s.image, true
}

// SetImage replaces the bitmap content.
func (s *Snapshot) SetImage(img *Bitmap) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = img
}

// StorageItems returns the current storage item list, if present.
func (s *Snapshot) StorageItems() ([]FileRef, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasStorage {
		return nil, false
	}
	return append([]FileRef(nil), s.storageItems...), true
}

// SetStorageItems replaces the storage item list.
func (s *Snapshot) SetStorageItems(items []FileRef) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storageItems = append([]FileRef(nil), items...)
	s.hasStorage = true
}

// Formats reports the formats currently present on the snapshot, in the
// fixed order Text, Html, Image, File. The result is recomputed per call.
func (s *Snapshot) Formats() []FormatDescriptor {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []FormatDescriptor
	if s.hasText {
		out = append(out, FormatDescriptor{Kind: FormatText})
	}
	if s.hasHTML {
		out = append(out, FormatDescriptor{Kind: FormatHTML})
	}
	if s.image != nil {
		out = append(out, FormatDescriptor{Kind: FormatImage})
	}
	if s.hasStorage {
		out = append(out, FormatDescriptor{Kind: FormatFile, Extensions: extensionsOf(s.storageItems)})
	}
	return out
}

// FormatKinds returns the current format kinds as strings, suitable for
// advertising to a chat backend.
func (s *Snapshot) FormatKinds() []string {
	descs := s.Formats()
	out := make([]string, 0, len(descs))
	for _, d := range descs {
		out = append(out, string(d.Kind))
	}
	return out
}

// Extensions returns the lower-cased extensions of the current storage
// items. Folders are reported as "folder".
func (s *Snapshot) Extensions() []string {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return extensionsOf(s.storageItems)
}

// HasFormat reports whether kind is currently present.
func (s *Snapshot) HasFormat(kind FormatKind) bool {
	for _, d := range s.Formats() {
		if d.Kind == kind {
			return true
		}
	}
	return false
}
