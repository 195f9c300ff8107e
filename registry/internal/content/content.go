// CLAUDE:SUMMARY Parse-mode routing: raw fetched bytes to extraction-ready text.
// Package content normalizes raw fetched bytes into extraction-ready text.
//
// Each source declares a parse type (structured-text, json, pdf, csv).
// HTML goes through a markdown conversion so the extraction prompt sees
// structure (headings, tables) instead of tag soup; pdf goes through
// content-stream text extraction; json and csv pass through untouched.
package content

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// Parsed is the normalized output of a parse pass.
type Parsed struct {
	Title string
	Text  string
}

// Parser routes raw content through the parse mode declared by the source.
type Parser struct {
	mdConverter *converter.Converter
}

// NewParser creates a Parser with the markdown conversion pipeline ready.
func NewParser() *Parser {
	return &Parser{
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Parse converts raw bytes to text according to parseType. Unknown parse
// types fall back to structured-text handling.
func (p *Parser) Parse(raw []byte, parseType, sourceURL string) (*Parsed, error) {
	switch parseType {
	case "json", "csv":
		// Passthrough: extraction strategies consume these directly.
		return &Parsed{Text: string(raw)}, nil
	case "pdf":
		title, text, err := extractPDF(raw)
		if err != nil {
			return nil, fmt.Errorf("content: pdf extraction: %w", err)
		}
		return &Parsed{Title: title, Text: text}, nil
	case "structured-text":
		return p.parseHTML(raw, sourceURL), nil
	default:
		return p.parseHTML(raw, sourceURL), nil
	}
}

// parseHTML converts HTML to markdown, falling back to plain-text
// collection when conversion fails or produces nothing.
func (p *Parser) parseHTML(raw []byte, sourceURL string) *Parsed {
	title, fallback := htmlTitleAndText(raw)

	text := fallback
	if md, err := p.mdConverter.ConvertString(string(raw), converter.WithDomain(sourceURL)); err == nil {
		if trimmed := strings.TrimSpace(md); trimmed != "" {
			text = trimmed
		}
	}
	return &Parsed{Title: title, Text: text}
}
