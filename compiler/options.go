package compiler

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cast"

	"sassgo/common"
	"sassgo/config"
	"sassgo/diag"
)

// MaxPrecision limits fractional digits, division is computed with this many
// digits.
const MaxPrecision = 20

// Options are copied into every compilation context.
type Options struct {
	// IncludePaths are searched in order after the importing file directory.
	// Empty list means current working directory.
	IncludePaths []string
	ImagePath    string
	Precision    int
	OutputStyle  common.OutputStyle
	// SourceComments selects line comments or source map.
	SourceComments    common.SourceComments
	OmitSourceMapURL  bool
	SourceMapContents bool
	// SourceMapPath is where map is written, defaults to OutFile with ".map"
	// suffix.
	SourceMapPath string
	// OutFile is where CSS is written. Source map URL and sources are
	// relative to it.
	OutFile string
}

// DefaultOptions returns nested output with five digits of precision.
func DefaultOptions() Options {
	return Options{
		Precision:      5,
		OutputStyle:    common.OutputStyleNested,
		SourceComments: common.SourceCommentsNone,
	}
}

// FromConfig takes defaults from configuration file.
func FromConfig(cfg *config.CompilerConfig) Options {
	if cfg == nil {
		return DefaultOptions()
	}
	opts := Options{
		ImagePath:         cfg.ImagePath,
		Precision:         cfg.Precision,
		OutputStyle:       cfg.OutputStyle,
		SourceComments:    cfg.SourceComments,
		OmitSourceMapURL:  cfg.OmitSourceMapURL,
		SourceMapContents: cfg.SourceMapContents,
	}
	if len(cfg.IncludePaths) > 0 {
		opts.IncludePaths = slices.Clone(cfg.IncludePaths)
	}
	return opts
}

// Validate checks options before compilation starts.
func (o *Options) Validate() error {
	if !o.OutputStyle.IsValid() {
		return diag.New(diag.KindInternal, diag.Location{}, "invalid output style %d", o.OutputStyle)
	}
	if !o.SourceComments.IsValid() {
		return diag.New(diag.KindInternal, diag.Location{}, "invalid source comments mode %d", o.SourceComments)
	}
	if o.Precision < 0 || o.Precision > MaxPrecision {
		return diag.New(diag.KindInternal, diag.Location{}, "precision %d is out of range [0, %d]", o.Precision, MaxPrecision)
	}
	for _, p := range o.IncludePaths {
		if strings.TrimSpace(p) == "" {
			return diag.New(diag.KindInternal, diag.Location{}, "empty include path")
		}
	}
	return nil
}

func (o Options) clone() Options {
	o.IncludePaths = slices.Clone(o.IncludePaths)
	return o
}

// OptionsFromMap builds options from loosely typed map as passed by
// language bindings. Keys are includePaths, imagePath, outputStyle, precision,
// sourceComments, omitSourceMapUrl, sourceMapPath, sourceMapContents and
// outFile. Missing keys keep defaults, unknown keys are errors.
func OptionsFromMap(m map[string]any) (Options, error) {
	opts := DefaultOptions()
	// sorted, so sourceMapPath is applied after sourceComments
	for _, key := range slices.Sorted(maps.Keys(m)) {
		if err := setOption(&opts, key, m[key]); err != nil {
			return Options{}, fmt.Errorf("option %q: %w", key, err)
		}
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func setOption(o *Options, key string, v any) (err error) {
	switch key {
	case "includePaths":
		if s, ok := v.(string); ok {
			o.IncludePaths = filepath.SplitList(s)
			return nil
		}
		o.IncludePaths, err = cast.ToStringSliceE(v)
	case "imagePath":
		o.ImagePath, err = cast.ToStringE(v)
	case "outputStyle":
		o.OutputStyle, err = enumOption(v, common.ParseOutputStyle)
	case "precision":
		o.Precision, err = cast.ToIntE(v)
	case "sourceComments":
		if b, ok := v.(bool); ok {
			o.SourceComments = common.SourceCommentsNone
			if b {
				o.SourceComments = common.SourceCommentsDefault
			}
			return nil
		}
		o.SourceComments, err = enumOption(v, common.ParseSourceComments)
	case "omitSourceMapUrl":
		o.OmitSourceMapURL, err = cast.ToBoolE(v)
	case "sourceMapContents":
		o.SourceMapContents, err = cast.ToBoolE(v)
	case "sourceMapPath":
		// true means map beside the out file
		if b, ok := v.(bool); ok {
			if b {
				o.SourceComments = common.SourceCommentsMap
			}
			return nil
		}
		if o.SourceMapPath, err = cast.ToStringE(v); err == nil && o.SourceMapPath != "" {
			o.SourceComments = common.SourceCommentsMap
		}
	case "outFile":
		o.OutFile, err = cast.ToStringE(v)
	default:
		err = errors.New("unknown option")
	}
	return err
}

// enumOption accepts enum name or its numeric value.
func enumOption[E ~int](v any, parse func(string) (E, error)) (E, error) {
	if s, ok := v.(string); ok {
		return parse(s)
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, err
	}
	return E(n), nil
}
