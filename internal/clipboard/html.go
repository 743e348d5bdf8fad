package clipboard

import (
	"fmt"
	"strings"
)

// The snapshot stores HTML in the CF_HTML clipboard layout: a numeric header
// describing byte offsets followed by the document with fragment markers.
// Offsets are computed over the final byte string, so the header is rendered
// with fixed-width fields first and patched afterwards.

const (
	startFragmentMarker = "<!--StartFragment-->"
	endFragmentMarker   = "<!--EndFragment-->"

	htmlHeaderTemplate = "Version:0.9\r\nStartHTML:%010d\r\nEndHTML:%010d\r\nStartFragment:%010d\r\nEndFragment:%010d\r\n"
)

// WrapHTML wraps a raw HTML fragment in the canonical clipboard format with
// fragment markers. Already-wrapped input is returned unchanged.
func WrapHTML(html string) string {
	if strings.HasPrefix(html, "Version:") && strings.Contains(html, "StartFragment:") {
		return html
	}

	body := "<html>\r\n<body>\r\n" + startFragmentMarker + html + endFragmentMarker + "\r\n</body>\r\n</html>"

	headerLen := len(fmt.Sprintf(htmlHeaderTemplate, 0, 0, 0, 0))
	startHTML := headerLen
	endHTML := headerLen + len(body)
	startFragment := headerLen + strings.Index(body, startFragmentMarker) + len(startFragmentMarker)
	endFragment := headerLen + strings.Index(body, endFragmentMarker)

	return fmt.Sprintf(htmlHeaderTemplate, startHTML, endHTML, startFragment, endFragment) + body
}

// UnwrapHTML extracts the fragment from a wrapped clipboard HTML string.
// Unwrapped input is returned as is.
func UnwrapHTML(wrapped string) string {
	start := strings.Index(wrapped, startFragmentMarker)
	if start < 0 {
		return wrapped
	}
	start += len(startFragmentMarker)
	end := strings.Index(wrapped, endFragmentMarker)
	if end < start {
		return wrapped[start:]
	}
	return wrapped[start:end]
}
