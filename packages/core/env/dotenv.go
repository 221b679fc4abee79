package env

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv parses a .env file and returns its key-value pairs without
// touching the process environment.
func LoadDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read env file %s: %w", path, err)
	}
	return vars, nil
}

// LoadAndExportDotEnv loads a .env file and exports each key that is not
// already set, so {{$NAME}} references can see it.
func LoadAndExportDotEnv(path string) (map[string]string, error) {
	vars, err := LoadDotEnv(path)
	if err != nil {
		return nil, err
	}

	for k, v := range vars {
		if _, set := os.LookupEnv(k); !set {
			_ = os.Setenv(k, v)
		}
	}

	return vars, nil
}
