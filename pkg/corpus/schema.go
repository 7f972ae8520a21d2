package corpus

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schemas/settings.schema.json
var settingsSchemaBytes []byte

//go:embed schemas/mcp.schema.json
var mcpSchemaBytes []byte

var printer = message.NewPrinter(language.English)

// compiledSchema compiles an embedded schema once per process.
type compiledSchema struct {
	name   string
	raw    []byte
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

func (c *compiledSchema) get() (*jsonschema.Schema, error) {
	c.once.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(c.raw))
		if err != nil {
			c.err = errors.Wrapf(err, "failed to parse embedded schema %s", c.name)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(c.name, doc); err != nil {
			c.err = errors.Wrapf(err, "failed to add schema resource %s", c.name)
			return
		}
		c.schema, c.err = compiler.Compile(c.name)
	})
	return c.schema, c.err
}

var (
	settingsSchema = &compiledSchema{name: "settings.schema.json", raw: settingsSchemaBytes}
	mcpSchema      = &compiledSchema{name: "mcp.schema.json", raw: mcpSchemaBytes}
)

// ValidateSettings checks a settings.json document, which wires commands to
// host lifecycle events. The error return is for schema compilation
// failures only; findings in the document come back as issues.
func ValidateSettings(data []byte) ([]Issue, error) {
	return validateAgainst(settingsSchema, data)
}

// ValidateMCP checks an mcp.json server catalog.
func ValidateMCP(data []byte) ([]Issue, error) {
	return validateAgainst(mcpSchema, data)
}

func validateAgainst(cs *compiledSchema, data []byte) ([]Issue, error) {
	schema, err := cs.get()
	if err != nil {
		return nil, err
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return []Issue{{Message: fmt.Sprintf("invalid JSON: %v", err)}}, nil
	}

	err = schema.Validate(instance)
	if err == nil {
		return nil, nil
	}
	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, errors.Wrap(err, "failed to validate document")
	}
	return extractSchemaIssues(validationErr), nil
}

// extractSchemaIssues walks the validation error tree and keeps the leaf
// errors. Branches for oneOf and $ref only restate their causes, so the
// walk skips them; when nothing specific survives, the top-level error
// text is used instead.
func extractSchemaIssues(ve *jsonschema.ValidationError) []Issue {
	var leaves []schemaIssue
	collectSchemaIssues(ve, &leaves)
	if len(leaves) == 0 {
		return []Issue{{Message: ve.Error()}}
	}

	seen := make(map[string]bool, len(leaves))
	issues := make([]Issue, 0, len(leaves))
	for _, leaf := range leaves {
		key := leaf.path + "|" + leaf.keyword + "|" + leaf.message
		if seen[key] {
			continue
		}
		seen[key] = true
		issues = append(issues, Issue{Message: leaf.String()})
	}
	return issues
}

type schemaIssue struct {
	path    string
	keyword string
	message string
}

func (s schemaIssue) String() string {
	if s.path == "" {
		return s.message
	}
	return fmt.Sprintf("%s: %s", s.path, s.message)
}

func collectSchemaIssues(ve *jsonschema.ValidationError, leaves *[]schemaIssue) {
	if len(ve.Causes) == 0 {
		var keyword string
		var msg string
		if ve.ErrorKind != nil {
			if kwPath := ve.ErrorKind.KeywordPath(); len(kwPath) > 0 {
				keyword = kwPath[len(kwPath)-1]
			}
			msg = ve.ErrorKind.LocalizedString(printer)
		}
		// container keywords carry no property-level information
		if keyword == "" || keyword == "oneOf" || keyword == "allOf" || keyword == "$ref" {
			return
		}
		var path string
		if len(ve.InstanceLocation) > 0 {
			path = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*leaves = append(*leaves, schemaIssue{path: path, keyword: keyword, message: msg})
		return
	}
	for _, cause := range ve.Causes {
		collectSchemaIssues(cause, leaves)
	}
}
