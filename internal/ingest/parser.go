// Package ingest turns HTML files into documents.
//
// Only the first <table> of a file is read. Its id attribute becomes the
// document ID, <caption> the title, the <thead> row the column headers
// (minus the corner cell) and every body row a labelled row of values.
// The first <tfoot> cell may carry creation metadata of the form
// "Creation: 5Mar2021 Norway".
package ingest

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/discrepancy/internal/document"
)

// ErrUnparsable is wrapped when a file has no usable table structure.
var ErrUnparsable = errors.New("unparsable document")

// ParseError reports the file that failed to parse.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DefaultPattern selects the files Parse and Files consider.
const DefaultPattern = "*.html"

// DefaultDateLayouts are tried in order against the footer date.
var DefaultDateLayouts = []string{"2Jan2006", "2Jan06", "2Jan"}

var footerPattern = regexp.MustCompile(`^Creation:\s?(?P<date>\d{1,2}[A-Z][a-z]{2}\d{2,4})\s?(?P<country>.*)`)

// Parser reads documents from HTML files.
type Parser struct {
	pattern     string
	dateLayouts []string
}

// Option configures a Parser.
type Option func(*Parser)

// WithPattern sets the file name glob used by Files and Parse.
func WithPattern(pattern string) Option {
	return func(p *Parser) {
		if pattern != "" {
			p.pattern = pattern
		}
	}
}

// WithDateLayouts replaces the layouts tried for the footer date.
func WithDateLayouts(layouts ...string) Option {
	return func(p *Parser) {
		if len(layouts) > 0 {
			p.dateLayouts = layouts
		}
	}
}

// NewParser returns a parser with the default pattern and date layouts.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		pattern:     DefaultPattern,
		dateLayouts: DefaultDateLayouts,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pattern returns the configured file name glob.
func (p *Parser) Pattern() string { return p.pattern }

// Files lists the regular files in dir matching the pattern, sorted by
// name. Subdirectories are not descended into.
func (p *Parser) Files(dir string) ([]string, error) {
	if _, err := filepath.Match(p.pattern, ""); err != nil {
		return nil, fmt.Errorf("file pattern %q: %w", p.pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(p.pattern, e.Name()); ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// Parse yields one document per matching file in dir, in file name order.
// Files that fail to parse yield a *ParseError and iteration continues.
// If dir cannot be listed, a single error is yielded.
func (p *Parser) Parse(dir string) iter.Seq2[document.Document, error] {
	return func(yield func(document.Document, error) bool) {
		files, err := p.Files(dir)
		if err != nil {
			yield(document.Document{}, err)
			return
		}
		for _, path := range files {
			doc, err := p.ParseDocument(path)
			if !yield(doc, err) {
				return
			}
		}
	}
}

// ParseDocument reads one file. The returned error is a *ParseError.
func (p *Parser) ParseDocument(path string) (document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return document.Document{Source: path}, &ParseError{Path: path, Err: err}
	}
	defer f.Close()

	return p.ParseReader(f, path)
}

// ParseReader reads one document from r. source is recorded on the
// document and in errors.
func (p *Parser) ParseReader(r io.Reader, source string) (document.Document, error) {
	src := wrapSource(r)
	root, err := html.Parse(src)
	if err != nil {
		return document.Document{Source: source}, &ParseError{Path: source, Err: err}
	}

	doc, err := p.fromTree(root)
	doc.Source = source
	if err != nil {
		return doc, &ParseError{Path: source, Err: err}
	}
	if err := doc.Validate(); err != nil {
		return doc, &ParseError{Path: source, Err: err}
	}

	slog.Debug("document parsed",
		"source", source,
		"document_id", doc.ID,
		"rows", len(doc.Body),
		"columns", len(doc.Header),
		"bytes", src.BytesRead(),
	)
	return doc, nil
}

func (p *Parser) fromTree(root *html.Node) (document.Document, error) {
	table := findElement(root, "table")
	if table == nil {
		return document.Document{}, fmt.Errorf("%w: no table element", ErrUnparsable)
	}

	var doc document.Document
	doc.ID = cleanText(attr(table, "id"))
	if doc.ID == "" {
		return doc, fmt.Errorf("%w: table has no id", ErrUnparsable)
	}

	if caption := childElement(table, "caption"); caption != nil {
		doc.Title = textContent(caption)
	}

	thead := childElement(table, "thead")
	if thead == nil {
		return doc, fmt.Errorf("%w: table %s has no header", ErrUnparsable, doc.ID)
	}
	if tr := childElement(thead, "tr"); tr != nil {
		cells := rowCells(tr)
		if len(cells) > 0 {
			doc.Header = cells[1:]
		}
	}

	body, units, err := parseBody(table, len(doc.Header))
	if err != nil {
		return doc, err
	}
	doc.Body = body
	doc.Units = units

	if tfoot := childElement(table, "tfoot"); tfoot != nil {
		p.parseFooter(&doc, tfoot)
	}
	return doc, nil
}

// parseBody reads every row of every tbody. Value cells are parsed as
// numbers; a column is percent-valued if any of its cells carried '%'.
func parseBody(table *html.Node, width int) ([]document.Row, []document.Unit, error) {
	var rows []document.Row
	percent := make([]bool, width)

	for section := table.FirstChild; section != nil; section = section.NextSibling {
		if section.Type != html.ElementNode || section.Data != "tbody" {
			continue
		}
		for tr := section.FirstChild; tr != nil; tr = tr.NextSibling {
			if tr.Type != html.ElementNode || tr.Data != "tr" {
				continue
			}
			cells := rowCells(tr)
			if len(cells) == 0 {
				continue
			}

			row := document.Row{Label: cells[0], Values: make([]float64, 0, len(cells)-1)}
			for j, raw := range cells[1:] {
				v, unit, err := parseValue(raw)
				if err != nil {
					return nil, nil, fmt.Errorf("%w: row %d (%q) column %d: %v",
						document.ErrMalformed, len(rows), row.Label, j, err)
				}
				if unit == document.UnitPercent && j < width {
					percent[j] = true
				}
				row.Values = append(row.Values, v)
			}
			rows = append(rows, row)
		}
	}

	var units []document.Unit
	for _, pct := range percent {
		if pct {
			units = make([]document.Unit, width)
			for j := range units {
				units[j] = document.UnitNumber
				if percent[j] {
					units[j] = document.UnitPercent
				}
			}
			break
		}
	}
	return rows, units, nil
}

// parseFooter keeps the footer and its metadata only when the first footer
// cell matches the creation pattern.
func (p *Parser) parseFooter(doc *document.Document, tfoot *html.Node) {
	tr := childElement(tfoot, "tr")
	if tr == nil {
		return
	}
	td := childElement(tr, "td")
	if td == nil {
		td = childElement(tr, "th")
	}
	if td == nil {
		return
	}

	text := textContent(td)
	m := footerPattern.FindStringSubmatch(text)
	if m == nil {
		return
	}

	doc.Footer = text
	doc.OriginCountry = strings.TrimSpace(m[footerPattern.SubexpIndex("country")])
	if t, ok := p.parseDate(m[footerPattern.SubexpIndex("date")]); ok {
		doc.CreatedAt = &t
	}
}

// parseDate tries each layout in order. Layouts without a year yield 1900.
func (p *Parser) parseDate(raw string) (time.Time, bool) {
	for _, layout := range p.dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = time.Date(1900, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return t, true
	}
	return time.Time{}, false
}

// rowCells returns the normalized text of the th/td children of tr.
func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, textContent(c))
		}
	}
	return cells
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func childElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
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
	var b strings.Builder
	collectText(n, &b)
	return cleanText(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// cleanText applies NFKC and collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}
