package clipboard

import (
	"errors"
	"reflect"
	"testing"
)

type fakeSource struct {
	text    string
	hasText bool
	textErr error

	html    string
	hasHTML bool
	htmlErr error

	image    *Bitmap
	hasImage bool
	imageErr error

	items    []FileRef
	hasItems bool
	itemsErr error
}

func (f *fakeSource) Text() (string, bool, error)   { return f.text, f.hasText, f.textErr }
func (f *fakeSource) HTML() (string, bool, error)   { return f.html, f.hasHTML, f.htmlErr }
func (f *fakeSource) Image() (*Bitmap, bool, error) { return f.image, f.hasImage, f.imageErr }
func (f *fakeSource) StorageItems() ([]FileRef, bool, error) {
	return f.items, f.hasItems, f.itemsErr
}

func TestReset_NilSourceClearsAndReturnsFalse(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot()
	snap.SetText("stale")
	snap.SetStorageItems([]FileRef{{Path: "/tmp/a.txt", Kind: FileKindFile}})

	if got := snap.Reset(nil); got {
		t.Fatalf("Reset(nil)=true, want false")
	}
	if _, ok := snap.Text(); ok {
		t.Fatalf("text survived Reset(nil)")
	}
	if got := snap.Formats(); len(got) != 0 {
		t.Fatalf("formats=%v, want empty", got)
	}
}

func TestReset_CopiesAllPresentFormats(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		text: "hello", hasText: true,
		html: "<b>hi</b>", hasHTML: true,
		image: &Bitmap{Width: 2, Height: 2, Pix: make([]byte, 16), Stride: 8}, hasImage: true,
		items: []FileRef{{Path: "/tmp/Report.PDF", Kind: FileKindFile}}, hasItems: true,
	}

	snap := NewSnapshot()
	if got := snap.Reset(src); !got {
		t.Fatalf("Reset=false, want true")
	}

	text, ok := snap.Text()
	if !ok || text != "hello" {
		t.Fatalf("text=%q ok=%v, want %q", text, ok, "hello")
	}
	html, ok := snap.HTML()
	if !ok {
		t.Fatalf("missing html")
	}
	if UnwrapHTML(html) != "<b>hi</b>" {
		t.Fatalf("unwrapped html=%q, want %q", UnwrapHTML(html), "<b>hi</b>")
	}
	if _, ok := snap.Image(); !ok {
		t.Fatalf("missing image")
	}
	items, ok := snap.StorageItems()
	if !ok || len(items) != 1 {
		t.Fatalf("items=%v ok=%v, want 1 item", items, ok)
	}
}

func TestReset_StorageFailureKeepsOtherFormats(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		text: "kept", hasText: true,
		items: nil, hasItems: true, itemsErr: errors.New("enumeration failed"),
	}

	snap := NewSnapshot()
	if got := snap.Reset(src); !got {
		t.Fatalf("Reset=false, want true despite storage failure")
	}
	if text, ok := snap.Text(); !ok || text != "kept" {
		t.Fatalf("text=%q ok=%v, want kept", text, ok)
	}
	if _, ok := snap.StorageItems(); ok {
		t.Fatalf("storage items present after failed enumeration")
	}
}

func TestProbe_ReportsExactlyPresentFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		src  *fakeSource
		want []FormatKind
	}{
		{
			name: "text only",
			src:  &fakeSource{text: "t", hasText: true},
			want: []FormatKind{FormatText},
		},
		{
			name: "all four",
			src: &fakeSource{
				text: "t", hasText: true,
				html: "h", hasHTML: true,
				image: &Bitmap{Width: 1, Height: 1, Pix: make([]byte, 4)}, hasImage: true,
				items: []FileRef{{Path: "/x/y.TXT", Kind: FileKindFile}}, hasItems: true,
			},
			want: []FormatKind{FormatText, FormatHTML, FormatImage, FormatFile},
		},
		{
			name: "empty",
			src:  &fakeSource{},
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			descs := Probe(tc.src)
			var got []FormatKind
			for _, d := range descs {
				got = append(got, d.Kind)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("kinds=%v, want=%v", got, tc.want)
			}
		})
	}
}

func TestProbe_FailingStorageEnumerationKeepsDetectedFormats(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		text: "t", hasText: true,
		html: "h", hasHTML: true,
		items: nil, hasItems: true, itemsErr: errors.New("boom"),
	}
	descs := Probe(src)
	if len(descs) != 2 {
		t.Fatalf("descriptors=%v, want text+html only", descs)
	}
	if descs[0].Kind != FormatText || descs[1].Kind != FormatHTML {
		t.Fatalf("kinds=%v, want [Text Html]", descs)
	}
}

func TestProbe_NilSource(t *testing.T) {
	t.Parallel()

	if got := Probe(nil); got != nil {
		t.Fatalf("Probe(nil)=%v, want nil", got)
	}
}

func TestExtensions_LowerCasedAndFolderToken(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot()
	snap.SetStorageItems([]FileRef{
		{Path: "/docs/Notes.MD", Kind: FileKindFile},
		{Path: "/docs/archive", Kind: FileKindFolder},
		{Path: "/img/Photo.JPEG", Kind: FileKindFile},
	})

	want := []string{".md", "folder", ".jpeg"}
	if got := snap.Extensions(); !reflect.DeepEqual(got, want) {
		t.Fatalf("extensions=%v, want=%v", got, want)
	}
}

func TestFormats_RecomputedPerCall(t *testing.T) {
	t.Parallel()

	snap := NewSnapshot()
	if got := snap.Formats(); len(got) != 0 {
		t.Fatalf("formats on empty snapshot=%v", got)
	}
	snap.SetText("x")
	if got := snap.FormatKinds(); !reflect.DeepEqual(got, []string{"Text"}) {
		t.Fatalf("kinds=%v, want [Text]", got)
	}
	snap.SetStorageItems([]FileRef{{Path: "/a/b.csv", Kind: FileKindFile}})
	if got := snap.FormatKinds(); !reflect.DeepEqual(got, []string{"Text", "File"}) {
		t.Fatalf("kinds=%v, want [Text File]", got)
	}
}

func TestWrapHTML_RoundTripAndIdempotent(t *testing.T) {
	t.Parallel()

	fragment := "<p>hello <b>world</b></p>"
	wrapped := WrapHTML(fragment)
	if wrapped == fragment {
		t.Fatalf("WrapHTML did not wrap")
	}
	if got := WrapHTML(wrapped); got != wrapped {
		t.Fatalf("WrapHTML not idempotent")
	}
	if got := UnwrapHTML(wrapped); got != fragment {
		t.Fatalf("UnwrapHTML=%q, want=%q", got, fragment)
	}
}
