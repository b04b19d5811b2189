package markup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BlockKind distinguishes prose from code in flattened content.
type BlockKind int

const (
	TextBlock BlockKind = iota
	CodeBlockKind
)

// Block is one vertical unit of flattened content.
type Block struct {
	Kind BlockKind
	// Text is the normalised prose, or the literal code for code blocks
	Text string
	// Code is the code block index (only for CodeBlockKind)
	Code int
	// Prefix is a list marker or quote marker for prose blocks
	Prefix string
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"ul": true, "ol": true, "li": true, "blockquote": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "hr": true,
}

// Flatten turns HTML content into terminal blocks. Inline markup is dropped,
// block elements become separate blocks and code containers keep their
// literal text. Content that is not HTML comes back as a single text block.
func Flatten(content string) []Block {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return []Block{{Kind: TextBlock, Text: content}}
	}

	f := &flattener{}
	f.walk(doc.Find("body"))
	f.flush()
	return f.blocks
}

type flattener struct {
	blocks []Block
	inline strings.Builder
	prefix string
	codes  int
}

func (f *flattener) walk(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch {
		case name == "#text":
			f.inline.WriteString(strings.ReplaceAll(s.Text(), "\n", " "))
		case name == "br":
			f.inline.WriteString("\n")
		case isCodeContainer(s):
			f.flush()
			block := codeBlockFrom(s, f.codes)
			text := block.Text
			if !block.HasCode {
				text = s.Text()
			}
			f.blocks = append(f.blocks, Block{Kind: CodeBlockKind, Text: strings.TrimRight(text, "\n"), Code: f.codes})
			f.codes++
		case name == "hr":
			f.flush()
			f.blocks = append(f.blocks, Block{Kind: TextBlock, Text: "────────"})
		case name == "td" || name == "th":
			if f.inline.Len() > 0 {
				f.inline.WriteString(" │ ")
			}
			f.walk(s)
		case blockElements[name]:
			f.flush()
			switch name {
			case "li":
				f.prefix = "• "
			case "blockquote":
				f.prefix = "│ "
			}
			f.walk(s)
			f.flush()
			f.prefix = ""
		case name == "script" || name == "style" || name == "#comment":
		default:
			f.walk(s)
		}
	})
}

func (f *flattener) flush() {
	raw := f.inline.String()
	f.inline.Reset()

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return
	}
	f.blocks = append(f.blocks, Block{Kind: TextBlock, Text: strings.Join(lines, "\n"), Prefix: f.prefix})
	f.prefix = ""
}
