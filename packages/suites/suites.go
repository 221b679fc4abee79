package suites

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/http"
	"github.com/tidwall/gjson"
)

//go:embed toolshop/*.yaml
var files embed.FS

// Dir is the directory inside FS holding the suites.
const Dir = "toolshop"

// FS returns the embedded suite files.
func FS() fs.FS {
	return files
}

// Names lists the embedded suites without extension, sorted.
func Names() []string {
	entries, _ := fs.ReadDir(files, Dir)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Load parses an embedded suite by name.
func Load(name string) (*parser.Suite, error) {
	p := path.Join(Dir, name+".yaml")
	data, err := files.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("unknown suite %q", name)
	}
	return parser.Parse(data, p)
}

// Categories parses the bundled categories suite.
func Categories() (*parser.Suite, error) {
	return Load("categories")
}

// Write copies every embedded suite into dir. Existing files are kept
// unless overwrite is set. It returns the paths written.
func Write(dir string, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var written []string
	for _, name := range Names() {
		data, err := files.ReadFile(path.Join(Dir, name+".yaml"))
		if err != nil {
			return written, err
		}
		dest := filepath.Join(dir, name+".yaml")
		if !overwrite {
			if _, err := os.Stat(dest); err == nil {
				continue
			}
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", dest, err)
		}
		written = append(written, dest)
	}
	return written, nil
}

// Brands builds the brands lifecycle suite in Go. Brands are flat: no tree
// routes, unique slugs, search on name.
func Brands(baseURL string) *parser.Suite {
	suite := parser.NewSuite("Toolshop brands", baseURL)
	suite.Variables["deleteStatus"] = "204|200"

	return suite.AddSteps(
		parser.NewStep("List brands", "GET", "/brands").
			WithTags("read", "smoke").
			ExpectStatus(200).
			ExpectShape([]any{map[string]any{"id": "{{$any}}", "name": "{{$string}}"}}),

		parser.NewStep("Create brand", "POST", "/brands").
			WithTags("write", "smoke").
			SetValue("brandName", "{{fake('company')}}").
			SetValue("brandSlug", "{{slug(brandName)}}-{{randomString(6)}}").
			WithBody(map[string]any{"name": "{{brandName}}", "slug": "{{brandSlug}}"}).
			ExpectStatus(201).
			ExpectShape(map[string]any{"id": "{{$any}}", "name": "{{brandName}}"}).
			ExtractWith(brandRef),

		parser.NewStep("Reject duplicate brand", "POST", "/brands").
			WithTags("write").
			WithBody(map[string]any{"name": "{{brandName}}", "slug": "{{brandSlug}}"}).
			ExpectStatus(400).
			ExpectShape(map[string]any{"message": "{{$contains already exists}}"}),

		parser.NewStep("Get brand", "GET", "/brands/{{brandId}}").
			WithTags("read").
			ExpectStatus(200).
			ExpectShape(map[string]any{"slug": "{{brandSlug}}"}),

		parser.NewStep("Search brands", "GET", "/brands/search").
			WithTags("read", "search").
			WithQuery("query", "{{brandName}}").
			ExpectStatus(200).
			ExpectShape([]any{map[string]any{"id": "{{$any}}"}}),

		parser.NewStep("Delete brand", "DELETE", "/brands/{{brandId}}").
			WithTags("write", "cleanup").
			ExpectStatusRef("deleteStatus"),
	)
}

// brandRef stores the new brand's id and self path.
func brandRef(resp *http.Response) (map[string]any, error) {
	id := gjson.GetBytes(resp.Body, "id")
	if !id.Exists() {
		return nil, fmt.Errorf("create brand: response has no id")
	}
	return map[string]any{
		"brandId":   id.Value(),
		"brandPath": "/brands/" + id.String(),
	}, nil
}
