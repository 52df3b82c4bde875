package indexer

import (
	"bytes"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"

	"github.com/hsinghweb/web-history-search-rag/internal/page"
)

// ExtractVisit flattens a visited page into PageText regardless of what
// the tab was displaying. HTML is extracted directly; markdown is
// rendered to HTML first; PDFs and plain text become body-only pages
// titled after the URL.
func ExtractVisit(v Visit) (page.PageText, error) {
	mediaType := v.ContentType
	if mt, _, err := mime.ParseMediaType(v.ContentType); err == nil {
		mediaType = mt
	}

	switch mediaType {
	case "", "text/html", "application/xhtml+xml":
		doc, err := page.Parse(bytes.NewReader(v.Content))
		if err != nil {
			return page.PageText{}, fmt.Errorf("parse visit %s: %w", v.URL, err)
		}
		return doc.Extract(), nil

	case "text/markdown":
		var buf bytes.Buffer
		if err := goldmark.Convert(v.Content, &buf); err != nil {
			return page.PageText{}, fmt.Errorf("render markdown %s: %w", v.URL, err)
		}
		doc, err := page.Parse(&buf)
		if err != nil {
			return page.PageText{}, fmt.Errorf("parse rendered markdown %s: %w", v.URL, err)
		}
		text := doc.Extract()
		if text.Title == "" {
			text.Title = titleFromURL(v.URL)
		}
		return text, nil

	case "application/pdf":
		text, err := pdfText(v.Content)
		if err != nil {
			return page.PageText{}, fmt.Errorf("extract pdf %s: %w", v.URL, err)
		}
		return page.PageText{Title: titleFromURL(v.URL), BodyText: text}, nil

	case "text/plain":
		return page.PageText{
			Title:    titleFromURL(v.URL),
			BodyText: strings.Join(strings.Fields(string(v.Content)), " "),
		}, nil

	default:
		return page.PageText{}, fmt.Errorf("unsupported content type %q for %s", v.ContentType, v.URL)
	}
}

// pdfText pulls plain text from a PDF. The reader needs random access
// with a known size, so the bytes go through a temp file.
func pdfText(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "whs-visit-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(text)
	}
	return strings.Join(strings.Fields(buf.String()), " "), nil
}

func titleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	base := path.Base(u.Path)
	if base == "" || base == "/" || base == "." {
		return u.Hostname()
	}
	return base
}
