// Package markup converts message content between the forms the transcript
// needs: Markdown from the backend into HTML, and HTML into terminal blocks.
//
// A code block is a block container (a <pre> element, or any element with
// the class "code-block") together with the <code> element nested inside
// it. Copy affordances are attached per container, in document order, so
// CodeBlocks and Flatten always agree on block indices.
package markup

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/util"
)

const codeContainerSelector = ".code-block, pre"

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ToHTML renders Markdown (GFM: fenced code, tables, strikethrough) to HTML.
func ToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// EscapeHTML escapes text so it renders literally inside HTML content.
func EscapeHTML(text string) string {
	return string(util.EscapeHTML([]byte(text)))
}

// CodeBlock is one code container found in a message.
type CodeBlock struct {
	// Index is the position of the container among all containers of the message
	Index int
	// Language comes from a "language-*" class on the code element
	Language string
	// Text is the literal text of the nested code element
	Text string
	// HasCode is false when the container has no nested code element
	HasCode bool
}

// CodeBlocks returns every code container of content in document order.
func CodeBlocks(content string) []CodeBlock {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var blocks []CodeBlock
	doc.Find(codeContainerSelector).Each(func(_ int, s *goquery.Selection) {
		if nestedInContainer(s) {
			return
		}
		blocks = append(blocks, codeBlockFrom(s, len(blocks)))
	})
	return blocks
}

func codeBlockFrom(container *goquery.Selection, index int) CodeBlock {
	block := CodeBlock{Index: index}
	code := container.Find("code").First()
	if code.Length() == 0 {
		return block
	}
	block.HasCode = true
	block.Text = code.Text()
	if class, ok := code.Attr("class"); ok {
		for _, c := range strings.Fields(class) {
			if lang, found := strings.CutPrefix(c, "language-"); found {
				block.Language = lang
				break
			}
		}
	}
	return block
}

// nestedInContainer reports whether s sits inside another code container,
// as a <pre> does inside a "code-block" wrapper.
func nestedInContainer(s *goquery.Selection) bool {
	return s.ParentsFiltered(codeContainerSelector).Length() > 0
}

func isCodeContainer(s *goquery.Selection) bool {
	return s.Is(codeContainerSelector)
}
