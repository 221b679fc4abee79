package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/shopspec/packages/core/parser"
	"github.com/abdul-hamid-achik/shopspec/packages/suites"
)

// builtinPrefix selects a suite bundled with the binary, e.g. builtin:categories.
const builtinPrefix = "builtin:"

// collectFiles expands files and directories into suite paths. Builtin
// references pass through unchanged.
func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		if strings.HasPrefix(arg, builtinPrefix) {
			files = append(files, arg)
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isSuiteFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if isSuiteFile(arg) {
			files = append(files, arg)
		}
	}

	return files, nil
}

// isSuiteFile accepts YAML files that are not shopspec config files.
func isSuiteFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return false
	}
	return !isConfigFile(path)
}

// loadSuite parses a suite file or a builtin reference.
func loadSuite(path string) (*parser.Suite, error) {
	if name, ok := strings.CutPrefix(path, builtinPrefix); ok {
		return suites.Load(name)
	}
	return parser.ParseFile(path)
}
