// Package frontmatter extracts the YAML header of Markdown documents and
// loads JSON metadata files into the same key/value shape.
package frontmatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontmatter is returned when a document has no leading --- block.
	ErrMissingFrontmatter = errors.New("missing frontmatter")
	// ErrMalformedFrontmatter is returned when the block is not a YAML mapping.
	ErrMalformedFrontmatter = errors.New("malformed frontmatter")
	// ErrMalformedMetadata is returned when a JSON metadata file is not an object.
	ErrMalformedMetadata = errors.New("malformed metadata")
)

// The opening delimiter must start the file; the block ends at the first
// following line that starts with ---.
var blockPattern = regexp.MustCompile(`(?s)\A---\s*\n(?:(.*?)\n)?---`)

// Document is the key/value mapping found in a header block or JSON object.
type Document map[string]any

// Has reports whether key is present, regardless of its value.
func (d Document) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Keys returns the document keys in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value of key formatted as a string.
// A null value is reported as "None".
func (d Document) String(key string) (string, bool) {
	v, ok := d[key]
	if !ok {
		return "", false
	}
	return Stringify(v), true
}

// Stringify formats a decoded YAML or JSON value the way it appears in
// messages and comparisons.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	case bool:
		if val {
			return "True"
		}
		return "False"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}

// ParseError carries the file path alongside one of the sentinel errors.
type ParseError struct {
	Path  string
	Err   error
	Cause error
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Err.Error())
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse extracts the header block from content.
func Parse(content []byte) (Document, error) {
	m := blockPattern.FindSubmatch(content)
	if m == nil {
		return nil, &ParseError{Err: ErrMissingFrontmatter}
	}

	var raw any
	if err := yaml.Unmarshal(m[1], &raw); err != nil {
		return nil, &ParseError{Err: ErrMalformedFrontmatter, Cause: err}
	}

	switch val := raw.(type) {
	case nil:
		return Document{}, nil
	case map[string]any:
		return Document(val), nil
	case map[any]any:
		doc := make(Document, len(val))
		for k, v := range val {
			doc[fmt.Sprint(k)] = v
		}
		return doc, nil
	default:
		return nil, &ParseError{
			Err:   ErrMalformedFrontmatter,
			Cause: fmt.Errorf("header is a %T, not a mapping", raw),
		}
	}
}

// ParseFile reads path and extracts its header block.
func ParseFile(path string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := Parse(content)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// LoadJSON reads a JSON file whose top level must be an object.
func LoadJSON(path string) (Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raw any
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, &ParseError{Path: path, Err: ErrMalformedMetadata, Cause: err}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ParseError{
			Path:  path,
			Err:   ErrMalformedMetadata,
			Cause: fmt.Errorf("top level is not an object"),
		}
	}
	return Document(obj), nil
}

// Load picks LoadJSON for .json files and ParseFile for everything else.
func Load(path string) (Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(path)
	}
	return ParseFile(path)
}
