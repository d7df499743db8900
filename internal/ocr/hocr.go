package ocr

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// ParseHOCR extracts word detections from tesseract hOCR output. Block,
// paragraph and line numbers are assigned in document order.
func ParseHOCR(data []byte) ([]Detection, error) {
	decoded, err := decodeHOCR(data)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(string(decoded)))
	if err != nil {
		return nil, fmt.Errorf("parse hocr: %w", err)
	}

	w := &hocrWalker{block: -1, paragraph: -1, line: -1}
	w.walk(doc)
	return w.words, nil
}

// decodeHOCR converts latin-1 documents to UTF-8. Anything that does not
// declare a charset is assumed to be UTF-8 already.
func decodeHOCR(data []byte) ([]byte, error) {
	content := string(data)
	idx := strings.Index(content, "charset=")
	if idx < 0 {
		return data, nil
	}

	snippet := content[idx+len("charset="):]
	if len(snippet) > 20 {
		snippet = snippet[:20]
	}
	fields := strings.FieldsFunc(snippet, func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == ' ' || r == '/'
	})
	if len(fields) == 0 {
		return data, nil
	}

	enc := strings.ToLower(fields[0])
	if enc == "utf-8" || enc == "utf8" {
		return data, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", enc, err)
	}
	return decoded, nil
}

type hocrWalker struct {
	block, paragraph, line int
	words                  []Detection
}

func (w *hocrWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch class := classOf(n); {
		case hasClass(class, "ocr_carea"):
			w.block++
		case hasClass(class, "ocr_par"):
			w.paragraph++
		case hasClass(class, "ocr_line"), hasClass(class, "ocr_textfloat"),
			hasClass(class, "ocr_header"), hasClass(class, "ocr_caption"):
			w.line++
		case hasClass(class, "ocrx_word"):
			if d, ok := w.word(n); ok {
				w.words = append(w.words, d)
			}
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *hocrWalker) word(n *html.Node) (Detection, bool) {
	props := parseTitle(attr(n, "title"))
	bbox, ok := props["bbox"]
	if !ok || len(bbox) != 4 {
		return Detection{}, false
	}
	coords := make([]int, 4)
	for i, f := range bbox {
		v, err := strconv.Atoi(f)
		if err != nil {
			return Detection{}, false
		}
		coords[i] = v
	}

	text := strings.TrimSpace(textContent(n))
	if text == "" {
		return Detection{}, false
	}

	conf := 0.0
	if wc, ok := props["x_wconf"]; ok && len(wc) > 0 {
		if v, err := strconv.ParseFloat(wc[0], 64); err == nil {
			conf = v / 100
		}
	}

	return Detection{
		Text:       text,
		Confidence: conf,
		Level:      LevelWord,
		Left:       coords[0],
		Top:        coords[1],
		Width:      coords[2] - coords[0],
		Height:     coords[3] - coords[1],
		Block:      max(w.block, 0),
		Paragraph:  max(w.paragraph, 0),
		Line:       max(w.line, 0),
	}, true
}

// parseTitle splits an hOCR title ("bbox 1 2 3 4; x_wconf 95") into
// property name and values.
func parseTitle(title string) map[string][]string {
	props := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		props[fields[0]] = fields[1:]
	}
	return props
}

func classOf(n *html.Node) []string {
	return strings.Fields(attr(n, "class"))
}

func hasClass(classes []string, name string) bool {
	for _, c := range classes {
		if c == name {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
