package page

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// Script is one script element in document order
type Script struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Src    string `json:"src,omitempty"` // Resolved against the page URL
	Inline string `json:"-"`
}

// External reports whether the script's text lives at Src
func (s Script) External() bool {
	return s.Src != ""
}

// Document is a parsed page
type Document struct {
	URL     *url.URL
	Title   string
	Charset string
	Scripts []Script
}

// Filename returns the diagnostic origin for script s: the URL path of an
// external script, otherwise the page URL tagged with the element id.
func (d *Document) Filename(s Script) string {
	if s.External() {
		if u, err := url.Parse(s.Src); err == nil && u.Path != "" {
			return u.Path
		}
		return s.Src
	}
	if s.ID != "" {
		return fmt.Sprintf("%s:#%s", d.URL, s.ID)
	}
	return fmt.Sprintf("%s:script", d.URL)
}

// Parse decodes and parses an HTML page. contentType may carry the
// charset the server declared; without one the charset is sniffed.
func Parse(data []byte, contentType string, pageURL *url.URL) (*Document, error) {
	name := DetectCharset(data, contentType)

	var r io.Reader = bytes.NewReader(data)
	if decoded, err := charset.NewReaderLabel(name, bytes.NewReader(data)); err == nil {
		r = decoded
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	base := pageURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := pageURL.Parse(strings.TrimSpace(href)); err == nil {
			base = u
		}
	}

	page := &Document{
		URL:     pageURL,
		Title:   strings.TrimSpace(doc.Find("title").First().Text()),
		Charset: name,
	}

	doc.Find("script").Each(func(i int, sel *goquery.Selection) {
		typ, _ := sel.Attr("type")
		if !isJavaScript(typ) {
			return
		}

		script := Script{Index: len(page.Scripts)}
		script.ID, _ = sel.Attr("id")

		if src, ok := sel.Attr("src"); ok && strings.TrimSpace(src) != "" {
			u, err := base.Parse(strings.TrimSpace(src))
			if err != nil {
				// Unresolvable src: keep it so the failure shows up in the report
				script.Src = src
			} else {
				script.Src = u.String()
			}
		} else {
			script.Inline = sel.Text()
		}
		page.Scripts = append(page.Scripts, script)
	})

	return page, nil
}

// DetectCharset picks the page encoding: a declared or byte-order-marked
// charset, a meta prescan or valid UTF-8, then statistical detection.
func DetectCharset(data []byte, contentType string) string {
	if _, name, certain := charset.DetermineEncoding(data, contentType); certain || name != "windows-1252" {
		return name
	}

	detector := chardet.NewHtmlDetector()
	if result, err := detector.DetectBest(data); err == nil && result != nil && result.Confidence >= 50 {
		if _, canonical := charset.Lookup(result.Charset); canonical != "" {
			return canonical
		}
	}
	return "windows-1252"
}

var javaScriptTypes = map[string]bool{
	"":                         true,
	"text/javascript":          true,
	"application/javascript":   true,
	"application/x-javascript": true,
	"text/ecmascript":          true,
	"application/ecmascript":   true,
	"text/jscript":             true,
}

func isJavaScript(typ string) bool {
	typ, _, _ = strings.Cut(typ, ";")
	return javaScriptTypes[strings.ToLower(strings.TrimSpace(typ))]
}
