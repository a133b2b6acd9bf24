package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rupor-github/gencfg"

	"sassgo/common"
)

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if cfg.Compiler.Precision != 5 {
		t.Errorf("Default precision = %d, want 5", cfg.Compiler.Precision)
	}
	if cfg.Compiler.OutputStyle != common.OutputStyleNested {
		t.Errorf("Default output style = %s, want nested", cfg.Compiler.OutputStyle)
	}
	if cfg.Compiler.SourceComments != common.SourceCommentsNone {
		t.Errorf("Default source comments = %s, want none", cfg.Compiler.SourceComments)
	}
	if cfg.Compiler.Workers < 1 {
		t.Errorf("Default workers = %d", cfg.Compiler.Workers)
	}
	if cfg.Compiler.Watch.Debounce != 100*time.Millisecond {
		t.Errorf("Default debounce = %v", cfg.Compiler.Watch.Debounce)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `version: 1
compiler:
  include_paths: ["lib", "vendor/styles.zip"]
  image_path: /img
  output_style: compressed
  precision: 3
  source_comments: map
  source_map_contents: true
  workers: 2
  watch:
    debounce: 250ms
logging:
  console:
    level: normal
  file:
    level: debug
    destination: ` + filepath.Join(tmpDir, "test.log") + `
    mode: append
reporting:
  destination: ` + filepath.Join(tmpDir, "test-report.zip") + `
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	c := cfg.Compiler
	if len(c.IncludePaths) != 2 || c.IncludePaths[1] != "vendor/styles.zip" {
		t.Errorf("IncludePaths = %v", c.IncludePaths)
	}
	if c.ImagePath != "/img" {
		t.Errorf("ImagePath = %q", c.ImagePath)
	}
	if c.OutputStyle != common.OutputStyleCompressed {
		t.Errorf("OutputStyle = %s, want compressed", c.OutputStyle)
	}
	if c.Precision != 3 {
		t.Errorf("Precision = %d, want 3", c.Precision)
	}
	if c.SourceComments != common.SourceCommentsMap || !c.SourceMapContents {
		t.Errorf("SourceComments = %s, SourceMapContents = %v", c.SourceComments, c.SourceMapContents)
	}
	if c.Workers != 2 {
		t.Errorf("Workers = %d, want 2", c.Workers)
	}
	// not in file, comes from the template
	if c.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64", c.QueueSize)
	}
	if c.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("Debounce = %v", c.Watch.Debounce)
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("FileLogger.Mode = %q", cfg.Logging.FileLogger.Mode)
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\ncompiler:\n  precision: 5\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"invalid version", "version: 2\n"},
		{"invalid style", "version: 1\ncompiler:\n  output_style: pretty\n"},
		{"negative precision", "version: 1\ncompiler:\n  precision: -1\n"},
		{"no workers", "version: 1\ncompiler:\n  workers: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			if _, err := LoadConfiguration(configPath); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	_, err := LoadConfiguration("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if len(data) == 0 {
		t.Error("Prepare() returned empty data")
	}

	cfg := &Config{}
	_, err = unmarshalConfig(data, cfg, true)
	if err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg := &Config{
		Version: 1,
		Compiler: CompilerConfig{
			OutputStyle:    common.OutputStyleExpanded,
			SourceComments: common.SourceCommentsDefault,
			Precision:      7,
			Workers:        1,
		},
		Logging: LoggingConfig{
			ConsoleLogger: LoggerConfig{Level: "normal"},
		},
	}

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	out := string(data)
	for _, want := range []string{"version: 1", "output_style: expanded", "source_comments: default", "precision: 7"} {
		if !strings.Contains(out, want) {
			t.Errorf("Dump() output does not contain %q:\n%s", want, out)
		}
	}

	loaded, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("unable to read dumped config: %v", err)
	}
	if loaded.Compiler.OutputStyle != common.OutputStyleExpanded {
		t.Errorf("OutputStyle after round trip = %s", loaded.Compiler.OutputStyle)
	}
}
