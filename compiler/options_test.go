package compiler

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sassgo/common"
	"sassgo/config"
)

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr bool
	}{
		{"defaults", func(*Options) {}, false},
		{"precision zero", func(o *Options) { o.Precision = 0 }, false},
		{"negative precision", func(o *Options) { o.Precision = -1 }, true},
		{"huge precision", func(o *Options) { o.Precision = MaxPrecision + 1 }, true},
		{"bad style", func(o *Options) { o.OutputStyle = common.OutputStyle(42) }, true},
		{"bad comments", func(o *Options) { o.SourceComments = common.SourceComments(-1) }, true},
		{"empty include path", func(o *Options) { o.IncludePaths = []string{"a", " "} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			if err := opts.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if diff := cmp.Diff(DefaultOptions(), FromConfig(&cfg.Compiler)); diff != "" {
		t.Errorf("default configuration differs from default options (-want +got):\n%s", diff)
	}

	cfg.Compiler.IncludePaths = []string{"lib"}
	cfg.Compiler.OutputStyle = common.OutputStyleCompact
	opts := FromConfig(&cfg.Compiler)
	cfg.Compiler.IncludePaths[0] = "changed"
	if opts.IncludePaths[0] != "lib" || opts.OutputStyle != common.OutputStyleCompact {
		t.Errorf("FromConfig() = %+v", opts)
	}

	if diff := cmp.Diff(DefaultOptions(), FromConfig(nil)); diff != "" {
		t.Errorf("FromConfig(nil) mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionsFromMap(t *testing.T) {
	list := "a" + string(filepath.ListSeparator) + "b"
	tests := []struct {
		name string
		in   map[string]any
		want func(*Options)
	}{
		{"empty", nil, func(*Options) {}},
		{"include paths string", map[string]any{"includePaths": list}, func(o *Options) { o.IncludePaths = []string{"a", "b"} }},
		{"include paths slice", map[string]any{"includePaths": []any{"a", "b"}}, func(o *Options) { o.IncludePaths = []string{"a", "b"} }},
		{"style name", map[string]any{"outputStyle": "compressed"}, func(o *Options) { o.OutputStyle = common.OutputStyleCompressed }},
		{"style number", map[string]any{"outputStyle": 1}, func(o *Options) { o.OutputStyle = common.OutputStyleExpanded }},
		{"precision string", map[string]any{"precision": "3"}, func(o *Options) { o.Precision = 3 }},
		{"comments true", map[string]any{"sourceComments": true}, func(o *Options) { o.SourceComments = common.SourceCommentsDefault }},
		{"comments map", map[string]any{"sourceComments": "map"}, func(o *Options) { o.SourceComments = common.SourceCommentsMap }},
		{"map path true", map[string]any{"sourceMapPath": true, "sourceComments": false, "outFile": "out.css"}, func(o *Options) {
			o.SourceComments = common.SourceCommentsMap
			o.OutFile = "out.css"
		}},
		{"map path string", map[string]any{"sourceMapPath": "x.map"}, func(o *Options) {
			o.SourceComments = common.SourceCommentsMap
			o.SourceMapPath = "x.map"
		}},
		{"flags", map[string]any{"omitSourceMapUrl": "true", "sourceMapContents": 1, "imagePath": "/img"}, func(o *Options) {
			o.OmitSourceMapURL = true
			o.SourceMapContents = true
			o.ImagePath = "/img"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OptionsFromMap(tt.in)
			if err != nil {
				t.Fatalf("OptionsFromMap() error = %v", err)
			}
			want := DefaultOptions()
			tt.want(&want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("OptionsFromMap() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOptionsFromMap_Errors(t *testing.T) {
	for name, in := range map[string]map[string]any{
		"unknown key":   {"style": "nested"},
		"bad style":     {"outputStyle": "pretty"},
		"style range":   {"outputStyle": 9},
		"bad precision": {"precision": "many"},
		"negative":      {"precision": -2},
		"bad flag":      {"omitSourceMapUrl": "maybe"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := OptionsFromMap(in); err == nil {
				t.Error("expected error")
			}
		})
	}
}
