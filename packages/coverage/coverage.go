// Package coverage reports which API endpoints a run exercised.
//
// Endpoints come from an OpenAPI document or from the routes the mock
// server serves. Requests are matched segment by segment; literal segments
// win over {param} segments, so GET /categories/tree is never counted as
// GET /categories/{id}.
package coverage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Report represents an API coverage report.
type Report struct {
	TotalEndpoints   int                   `json:"totalEndpoints"`
	CoveredEndpoints int                   `json:"coveredEndpoints"`
	CoveragePercent  float64               `json:"coveragePercent"`
	ByTag            map[string]*TagReport `json:"byTag,omitempty"`
	Endpoints        []EndpointStatus      `json:"endpoints"`
	Unmatched        []Request             `json:"unmatched,omitempty"`
}

// TagReport represents coverage for a specific tag.
type TagReport struct {
	Tag              string  `json:"tag"`
	TotalEndpoints   int     `json:"totalEndpoints"`
	CoveredEndpoints int     `json:"coveredEndpoints"`
	CoveragePercent  float64 `json:"coveragePercent"`
}

// EndpointStatus represents the coverage status of an endpoint.
type EndpointStatus struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	OperationID string   `json:"operationId,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Covered     bool     `json:"covered"`
	Hits        int      `json:"hits"`
}

// Endpoint is one method and path template, e.g. GET /categories/{id}.
type Endpoint struct {
	Method      string
	Path        string
	OperationID string
	Tags        []string
}

// Request is a request sent during the run.
type Request struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Analyzer matches requests against a set of endpoints.
type Analyzer struct {
	endpoints []Endpoint
	basePath  string
}

func NewAnalyzer(endpoints ...Endpoint) *Analyzer {
	return &Analyzer{endpoints: endpoints}
}

// SetBasePath strips prefix from request paths before matching, for APIs
// mounted below the host root.
func (a *Analyzer) SetBasePath(prefix string) {
	a.basePath = strings.TrimSuffix(prefix, "/")
}

// Add registers endpoints.
func (a *Analyzer) Add(endpoints ...Endpoint) {
	a.endpoints = append(a.endpoints, endpoints...)
}

func (a *Analyzer) Endpoints() []Endpoint {
	return a.endpoints
}

// LoadOpenAPI loads endpoints from an OpenAPI document in YAML or JSON.
func (a *Analyzer) LoadOpenAPI(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read OpenAPI document: %w", err)
	}

	// YAML is a superset of JSON, so one decoder covers both.
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse OpenAPI document %s: %w", path, err)
	}

	return a.addOpenAPI(doc)
}

func (a *Analyzer) addOpenAPI(doc map[string]any) error {
	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		return fmt.Errorf("no paths found in OpenAPI document")
	}

	for path, pathItem := range paths {
		pathObj, ok := pathItem.(map[string]any)
		if !ok {
			continue
		}

		for _, method := range []string{"get", "post", "put", "patch", "delete", "options", "head"} {
			operation, ok := pathObj[method].(map[string]any)
			if !ok {
				continue
			}

			endpoint := Endpoint{
				Method: strings.ToUpper(method),
				Path:   path,
			}
			if opID, ok := operation["operationId"].(string); ok {
				endpoint.OperationID = opID
			}
			if tags, ok := operation["tags"].([]any); ok {
				for _, tag := range tags {
					if tagStr, ok := tag.(string); ok {
						endpoint.Tags = append(endpoint.Tags, tagStr)
					}
				}
			}

			a.endpoints = append(a.endpoints, endpoint)
		}
	}

	return nil
}

// Analyze counts the requests hitting each endpoint.
func (a *Analyzer) Analyze(requests []Request) *Report {
	report := &Report{
		TotalEndpoints: len(a.endpoints),
		ByTag:          make(map[string]*TagReport),
		Endpoints:      make([]EndpointStatus, 0, len(a.endpoints)),
	}

	hits := make([]int, len(a.endpoints))
	for _, req := range requests {
		if i := a.match(req); i >= 0 {
			hits[i]++
		} else {
			report.Unmatched = append(report.Unmatched, req)
		}
	}

	for i, endpoint := range a.endpoints {
		covered := hits[i] > 0
		report.Endpoints = append(report.Endpoints, EndpointStatus{
			Method:      endpoint.Method,
			Path:        endpoint.Path,
			OperationID: endpoint.OperationID,
			Tags:        endpoint.Tags,
			Covered:     covered,
			Hits:        hits[i],
		})
		if covered {
			report.CoveredEndpoints++
		}

		for _, tag := range endpoint.Tags {
			tagReport, exists := report.ByTag[tag]
			if !exists {
				tagReport = &TagReport{Tag: tag}
				report.ByTag[tag] = tagReport
			}
			tagReport.TotalEndpoints++
			if covered {
				tagReport.CoveredEndpoints++
			}
		}
	}

	report.CoveragePercent = percent(report.CoveredEndpoints, report.TotalEndpoints)
	for _, tagReport := range report.ByTag {
		tagReport.CoveragePercent = percent(tagReport.CoveredEndpoints, tagReport.TotalEndpoints)
	}

	sort.Slice(report.Endpoints, func(i, j int) bool {
		if report.Endpoints[i].Path != report.Endpoints[j].Path {
			return report.Endpoints[i].Path < report.Endpoints[j].Path
		}
		return report.Endpoints[i].Method < report.Endpoints[j].Method
	})

	return report
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// match returns the index of the most specific endpoint for req, or -1.
func (a *Analyzer) match(req Request) int {
	path := strings.TrimPrefix(req.Path, a.basePath)
	segments := splitPath(path)

	best, bestScore := -1, -1
	for i, endpoint := range a.endpoints {
		if !strings.EqualFold(req.Method, endpoint.Method) {
			continue
		}
		if score, ok := matchSegments(splitPath(endpoint.Path), segments); ok && score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// matchSegments reports whether path fits template and how many literal
// segments matched.
func matchSegments(template, path []string) (int, bool) {
	if len(template) != len(path) {
		return 0, false
	}
	literal := 0
	for i, seg := range template {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if path[i] == "" {
				return 0, false
			}
			continue
		}
		if seg != path[i] {
			return 0, false
		}
		literal++
	}
	return literal, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// FormatConsole formats the report for console output.
func (r *Report) FormatConsole() string {
	var sb strings.Builder

	sb.WriteString("\nAPI Coverage Report\n")
	sb.WriteString("===================\n\n")

	sb.WriteString(fmt.Sprintf("Total Endpoints:   %d\n", r.TotalEndpoints))
	sb.WriteString(fmt.Sprintf("Covered Endpoints: %d\n", r.CoveredEndpoints))
	sb.WriteString(fmt.Sprintf("Coverage:          %.1f%%\n\n", r.CoveragePercent))

	if len(r.ByTag) > 0 {
		sb.WriteString("Coverage by Tag:\n")

		tags := make([]string, 0, len(r.ByTag))
		for tag := range r.ByTag {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		for _, tag := range tags {
			tagReport := r.ByTag[tag]
			sb.WriteString(fmt.Sprintf("  %s: %d/%d (%.1f%%)\n",
				tag, tagReport.CoveredEndpoints, tagReport.TotalEndpoints, tagReport.CoveragePercent))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Endpoint Details:\n")
	for _, endpoint := range r.Endpoints {
		status := "[ ]"
		if endpoint.Covered {
			status = "[x]"
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s", status, endpoint.Method, endpoint.Path))
		if endpoint.Hits > 1 {
			sb.WriteString(fmt.Sprintf(" (x%d)", endpoint.Hits))
		}
		sb.WriteString("\n")
	}

	if len(r.Unmatched) > 0 {
		sb.WriteString("\nRequests outside the catalogue:\n")
		for _, req := range r.Unmatched {
			sb.WriteString(fmt.Sprintf("  %s %s\n", req.Method, req.Path))
		}
	}

	return sb.String()
}

// FormatJSON formats the report as JSON.
func (r *Report) FormatJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
