// Package catalog documents the available generators and their defaults.
package catalog

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/synthdata/internal/dataset"
	"git.home.luguber.info/inful/synthdata/internal/export"
	"git.home.luguber.info/inful/synthdata/internal/pattern"
	"git.home.luguber.info/inful/synthdata/internal/timeseries"
)

//go:embed catalog.md.tmpl
var source string

var tmpl = template.Must(template.New("catalog").Parse(source))

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

type data struct {
	Start          string
	End            string
	ProcessMinutes float64
	Columns        []string
	Pattern        pattern.Options
	Dataset        dataset.CollectionOptions
	Formats        []string
}

// Markdown returns the catalog with current defaults filled in.
func Markdown() ([]byte, error) {
	d := data{
		Start:          timeseries.DefaultStart,
		End:            timeseries.DefaultEnd,
		ProcessMinutes: timeseries.DefaultProcessMinutes,
		Pattern:        pattern.DefaultOptions(),
		Dataset:        dataset.DefaultCollectionOptions(),
		Formats:        export.Formats(),
	}
	for _, s := range timeseries.Stages {
		d.Columns = append(d.Columns, s.Column())
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HTML renders the catalog as an HTML fragment.
func HTML() ([]byte, error) {
	src, err := Markdown()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Page wraps HTML in a minimal standalone document.
func Page() ([]byte, error) {
	body, err := HTML()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>synthdata</title></head><body>\n")
	buf.Write(body)
	buf.WriteString("</body></html>\n")
	return buf.Bytes(), nil
}

// Sections lists the level-two headings, one per generator plus trailers.
func Sections() ([]string, error) {
	src, err := Markdown()
	if err != nil {
		return nil, err
	}
	root := md.Parser().Parse(text.NewReader(src))
	var out []string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if h, ok := n.(*gmast.Heading); entering && ok && h.Level == 2 {
			out = append(out, headingText(h, src))
		}
		return gmast.WalkContinue, nil
	})
	return out, nil
}

// Links returns every link destination in the catalog.
func Links() ([]string, error) {
	src, err := Markdown()
	if err != nil {
		return nil, err
	}
	root := md.Parser().Parse(text.NewReader(src))
	var out []string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if l, ok := n.(*gmast.Link); entering && ok {
			out = append(out, string(l.Destination))
		}
		return gmast.WalkContinue, nil
	})
	return out, nil
}

func headingText(h *gmast.Heading, src []byte) string {
	var buf bytes.Buffer
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*gmast.Text); ok {
			buf.Write(t.Segment.Value(src))
		}
	}
	return buf.String()
}
