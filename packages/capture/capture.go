package capture

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/http"
	"github.com/tidwall/gjson"
)

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// MissingError reports a capture that found no value.
type MissingError struct {
	Name   string
	Source parser.CaptureSource
	Path   string
	Reason string
}

func (e *MissingError) Error() string {
	where := e.Source.String()
	if e.Path != "" {
		where += " " + e.Path
	}
	msg := fmt.Sprintf("capture %q: nothing found at %s", e.Name, where)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
	isJSON   bool
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{response: resp}
	if gjson.ValidBytes(resp.Body) {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
		e.isJSON = true
	}
	return e
}

func (e *Extractor) Extract(c *parser.Capture) (any, error) {
	switch c.Source {
	case parser.CaptureBody:
		return e.extractFromBody(c)
	case parser.CaptureHeader:
		value := e.response.Header(c.Path)
		if value == "" {
			return nil, &MissingError{Name: c.Name, Source: c.Source, Path: c.Path}
		}
		return value, nil
	case parser.CaptureStatus:
		return e.response.StatusCode, nil
	default:
		return nil, fmt.Errorf("capture %q: unknown source %s", c.Name, c.Source)
	}
}

func (e *Extractor) extractFromBody(c *parser.Capture) (any, error) {
	if c.Path == "" {
		if e.isJSON {
			return e.bodyJSON.Value(), nil
		}
		if !e.response.HasBody() {
			return nil, &MissingError{Name: c.Name, Source: c.Source, Reason: "empty body"}
		}
		return e.response.BodyString(), nil
	}

	if !e.isJSON {
		return nil, &MissingError{Name: c.Name, Source: c.Source, Path: c.Path, Reason: "body is not JSON"}
	}

	if strings.HasPrefix(c.Path, "$") {
		v, err := jsonpath.Get(c.Path, e.bodyJSON.Value())
		if err != nil {
			return nil, &MissingError{Name: c.Name, Source: c.Source, Path: c.Path, Reason: err.Error()}
		}
		return v, nil
	}

	result := e.bodyJSON.Get(convertBracketNotation(c.Path))
	if !result.Exists() {
		return nil, &MissingError{Name: c.Name, Source: c.Source, Path: c.Path}
	}
	return result.Value(), nil
}

// convertBracketNotation turns "items[0].id" into the gjson form "items.0.id".
func convertBracketNotation(path string) string {
	return strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
}

// ExtractAll runs every capture in order. Values found are returned even
// when some captures fail; the errors are returned alongside.
func ExtractAll(resp *http.Response, captures []*parser.Capture) (map[string]any, []error) {
	extractor := NewExtractor(resp)
	results := make(map[string]any, len(captures))
	var errs []error

	for _, c := range captures {
		value, err := extractor.Extract(c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results[c.Name] = value
	}

	return results, errs
}
