package corpus

import (
	"bytes"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

// Frontmatter is the YAML metadata block shared by corpus markdown files.
// Groups differ in which fields they require, not in the shape of the block.
type Frontmatter struct {
	Name         string   `mapstructure:"name"`
	Description  string   `mapstructure:"description"`
	Version      string   `mapstructure:"version"`
	Model        string   `mapstructure:"model"`
	Tools        []string `mapstructure:"tools"`
	ArgumentHint string   `mapstructure:"argument-hint"`
}

// document is one parsed markdown file.
type document struct {
	path           string
	fm             Frontmatter
	body           string
	hasFrontmatter bool
}

// parseDocument reads path and splits it into frontmatter and body. A file
// without a frontmatter block parses fine with hasFrontmatter false; broken
// YAML or undecodable metadata is an error the caller reports as an issue.
func parseDocument(path string) (*document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	doc := &document{path: path, body: extractBody(string(content))}
	metaData := meta.Get(pctx)
	if metaData != nil {
		doc.hasFrontmatter = true
		if err := mapstructure.WeakDecode(metaData, &doc.fm); err != nil {
			return nil, errors.Wrap(err, "failed to decode frontmatter")
		}
	}
	return doc, nil
}

// extractBody strips the frontmatter block so emptiness checks look at the
// prose, not the metadata.
func extractBody(content string) string {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return strings.TrimSpace(content)
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		}
	}
	// unterminated frontmatter, treat the whole file as body
	return strings.TrimSpace(content)
}
