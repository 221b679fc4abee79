package env

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

type Environment struct {
	Name      string
	Variables map[string]any
}

// LoadEnvironment picks the named block from the config's environments.
// An unknown name is an error unless no environments are configured at all.
func LoadEnvironment(envName string, configEnvs map[string]map[string]any) (*Environment, error) {
	env := &Environment{
		Name:      envName,
		Variables: make(map[string]any),
	}

	if len(configEnvs) == 0 || envName == "" {
		return env, nil
	}

	vars, ok := configEnvs[envName]
	if !ok {
		names := make([]string, 0, len(configEnvs))
		for name := range configEnvs {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("environment %q not found (available: %s)", envName, strings.Join(names, ", "))
	}
	for k, v := range vars {
		env.Variables[k] = v
	}

	return env, nil
}

// MergeVariables merges sources left to right; later sources win.
func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}

// LoadSystemEnv returns OS environment variables starting with prefix, with
// the prefix stripped. SHOPSPEC_VAR_baseUrl becomes baseUrl.
func LoadSystemEnv(prefix string) map[string]any {
	result := make(map[string]any)
	for _, e := range os.Environ() {
		key, value, found := strings.Cut(e, "=")
		if !found {
			continue
		}
		if prefix == "" {
			result[key] = value
		} else if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = value
		}
	}
	return result
}

// ParseAssignments turns ["k=v", ...] CLI flags into variables.
func ParseAssignments(pairs []string) (map[string]any, error) {
	result := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, found := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !found || k == "" {
			return nil, fmt.Errorf("invalid variable %q (expected key=value)", p)
		}
		result[k] = v
	}
	return result, nil
}
