package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDotEnv(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{
			name:    "simple key-value",
			content: "TOOLSHOP_TOKEN=secret123",
			expected: map[string]string{
				"TOOLSHOP_TOKEN": "secret123",
			},
		},
		{
			name:    "multiple keys",
			content: "KEY1=value1\nKEY2=value2\nKEY3=value3",
			expected: map[string]string{
				"KEY1": "value1",
				"KEY2": "value2",
				"KEY3": "value3",
			},
		},
		{
			name:    "double quoted value",
			content: `TOOLSHOP_TOKEN="secret with spaces"`,
			expected: map[string]string{
				"TOOLSHOP_TOKEN": "secret with spaces",
			},
		},
		{
			name:    "single quoted value",
			content: `TOOLSHOP_TOKEN='secret with spaces'`,
			expected: map[string]string{
				"TOOLSHOP_TOKEN": "secret with spaces",
			},
		},
		{
			name:    "comments and blank lines are skipped",
			content: "# base url for the sandbox\n\nBASE_URL=http://localhost:3000\n",
			expected: map[string]string{
				"BASE_URL": "http://localhost:3000",
			},
		},
		{
			name:    "value with equals sign",
			content: "SEARCH=https://api.example.com/categories/search?q=tools",
			expected: map[string]string{
				"SEARCH": "https://api.example.com/categories/search?q=tools",
			},
		},
		{
			name:     "empty file",
			content:  "",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envFile := filepath.Join(t.TempDir(), ".env")
			if err := os.WriteFile(envFile, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write temp file: %v", err)
			}

			result, err := LoadDotEnv(envFile)
			if err != nil {
				t.Fatalf("LoadDotEnv() error = %v", err)
			}

			if len(result) != len(tt.expected) {
				t.Errorf("LoadDotEnv() returned %d keys, want %d", len(result), len(tt.expected))
			}

			for k, v := range tt.expected {
				if got, ok := result[k]; !ok {
					t.Errorf("LoadDotEnv() missing key %q", k)
				} else if got != v {
					t.Errorf("LoadDotEnv()[%q] = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestLoadDotEnvFileNotFound(t *testing.T) {
	_, err := LoadDotEnv("/nonexistent/path/.env")
	if err == nil {
		t.Error("LoadDotEnv() expected error for non-existent file")
	}
}

func TestLoadAndExportDotEnvKeepsExisting(t *testing.T) {
	t.Setenv("SHOPSPEC_TEST_EXISTING", "from-shell")

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "SHOPSPEC_TEST_EXISTING=from-file\nSHOPSPEC_TEST_NEW=fresh\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SHOPSPEC_TEST_NEW") })

	if _, err := LoadAndExportDotEnv(envFile); err != nil {
		t.Fatalf("LoadAndExportDotEnv() error = %v", err)
	}

	if got := os.Getenv("SHOPSPEC_TEST_EXISTING"); got != "from-shell" {
		t.Errorf("existing variable overwritten: got %q", got)
	}
	if got := os.Getenv("SHOPSPEC_TEST_NEW"); got != "fresh" {
		t.Errorf("new variable not exported: got %q", got)
	}
}
