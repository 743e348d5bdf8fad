// Package convert turns clipboard text into JSON.
//
// Supported inputs are XML documents and CSV with a header row. Anything
// else is rejected with an error so callers can leave the clipboard content
// untouched.
package convert

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ToJSON converts text to a JSON document.
//
// Input starting with '<' is parsed as XML; everything else is tried as CSV.
// The original text is never modified; on error the caller keeps its input.
func ToJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", errors.New("empty input")
	}
	if strings.HasPrefix(trimmed, "<") {
		return xmlToJSON(trimmed)
	}
	return csvToJSON(trimmed)
}

// xmlNode is the intermediate tree built from the XML token stream.
type xmlNode struct {
	attrs    map[string]string
	children map[string][]*xmlNode
	order    []string
	text     strings.Builder
}

func newXMLNode() *xmlNode {
	return &xmlNode{
		attrs:    map[string]string{},
		children: map[string][]*xmlNode{},
	}
}

func (n *xmlNode) addChild(name string, child *xmlNode) {
	if _, ok := n.children[name]; !ok {
		n.order = append(n.order, name)
	}
	n.children[name] = append(n.children[name], child)
}

// value flattens a node: leaf elements collapse to their text, repeated
// elements to arrays, attributes are prefixed with "@".
func (n *xmlNode) value() any {
	text := strings.TrimSpace(n.text.String())
	if len(n.attrs) == 0 && len(n.children) == 0 {
		return text
	}

	out := make(map[string]any, len(n.attrs)+len(n.children)+1)
	for k, v := range n.attrs {
		out["@"+k] = v
	}
	for _, name := range n.order {
		nodes := n.children[name]
		if len(nodes) == 1 {
			out[name] = nodes[0].value()
			continue
		}
		arr := make([]any, 0, len(nodes))
		for _, c := range nodes {
			arr = append(arr, c.value())
		}
		out[name] = arr
	}
	if text != "" {
		out["#text"] = text
	}
	return out
}

func xmlToJSON(text string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(text))

	root := newXMLNode()
	stack := []*xmlNode{root}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := newXMLNode()
			for _, attr := range t.Attr {
				node.attrs[attr.Name.Local] = attr.Value
			}
			stack[len(stack)-1].addChild(t.Name.Local, node)
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) <= 1 {
				return "", errors.New("parse xml: unbalanced end element")
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			stack[len(stack)-1].text.Write(t)
		}
	}
	if len(stack) != 1 {
		return "", errors.New("parse xml: unterminated element")
	}
	if len(root.children) == 0 {
		return "", errors.New("parse xml: no elements")
	}

	return marshalIndent(root.value())
}

func csvToJSON(text string) (string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return "", errors.New("parse csv: need a header row and at least one record")
	}

	header := records[0]
	// A single column accepts nearly any multi-line prose; require at least
	// two so free text is rejected instead of silently "converted".
	if len(header) < 2 {
		return "", errors.New("parse csv: need at least two columns")
	}
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[strings.TrimSpace(name)] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	return marshalIndent(rows)
}

func marshalIndent(v any) (string, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
