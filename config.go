package chtl

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/chtl-lang/chtl/compilers"
	"github.com/chtl-lang/chtl/dispatcher"
	"github.com/chtl-lang/chtl/scanner"
)

// Config represents the CHTL project configuration (chtl.yaml)
type Config struct {
	InputDir   string           `yaml:"input_dir"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Compilers  CompilersConfig  `yaml:"compilers"`
	Output     OutputConfig     `yaml:"output"`
}

// ScannerConfig represents slicing settings of the unified scanner
type ScannerConfig struct {
	InitialSliceSize int `yaml:"initial_slice_size"`
	MaxSliceSize     int `yaml:"max_slice_size"`
	MinSliceSize     int `yaml:"min_slice_size"`
	// Pointer to distinguish between unset and false
	MergeAdjacentSlices *bool `yaml:"merge_adjacent_slices"`
	Debug               bool  `yaml:"debug"`
}

// DispatcherConfig represents compilation scheduling settings
type DispatcherConfig struct {
	Parallel bool `yaml:"parallel"`
	Workers  int  `yaml:"workers"`
	// FragmentTimeout of 0 disables the per-fragment timeout; nil means the default
	FragmentTimeout *time.Duration `yaml:"fragment_timeout"`
	// CacheSize of 0 disables the result cache; nil means the default
	CacheSize *int `yaml:"cache_size"`
}

// CompilersConfig represents built-in compiler settings
type CompilersConfig struct {
	MinifyCSS bool `yaml:"minify_css"`
	MinifyJS  bool `yaml:"minify_js"`
	StrictCSS bool `yaml:"strict_css"`
	StrictJS  bool `yaml:"strict_js"`
}

// OutputConfig represents where compiled pages are written
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	Split      bool   `yaml:"split"`
	MinifyHTML bool   `yaml:"minify_html"`
	Title      string `yaml:"title"`
}

const (
	defaultInputDir        = "./src"
	defaultOutputDir       = "./dist"
	defaultFragmentTimeout = 5 * time.Second
	defaultCacheSize       = 256
)

// LoadConfig loads configuration from the specified file
func LoadConfig(configPath string) (*Config, error) {
	// Load .env files first
	err := loadEnvFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to load environment files: %w", err)
	}

	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		config := DefaultConfig()
		expandConfigEnvVars(config)

		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML with strict mode to detect unknown fields
	var config Config

	err = yaml.UnmarshalWithOptions(data, &config, yaml.Strict())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	applyDefaults(&config)
	expandConfigEnvVars(&config)

	return &config, nil
}

// validateConfig validates the configuration for common errors and inconsistencies
func validateConfig(config *Config) error {
	s := config.Scanner
	if s.InitialSliceSize < 0 || s.MaxSliceSize < 0 || s.MinSliceSize < 0 {
		return fmt.Errorf("%w: scanner slice sizes must be non-negative", ErrConfigValidation)
	}

	// zero sizes are filled in by applyDefaults, so compare only the configured ones
	if s.MinSliceSize > 0 && s.InitialSliceSize > 0 && s.MinSliceSize > s.InitialSliceSize {
		return fmt.Errorf("%w: scanner.min_slice_size (%d) must not exceed scanner.initial_slice_size (%d)", ErrConfigValidation, s.MinSliceSize, s.InitialSliceSize)
	}

	if s.InitialSliceSize > 0 && s.MaxSliceSize > 0 && s.InitialSliceSize > s.MaxSliceSize {
		return fmt.Errorf("%w: scanner.initial_slice_size (%d) must not exceed scanner.max_slice_size (%d)", ErrConfigValidation, s.InitialSliceSize, s.MaxSliceSize)
	}

	d := config.Dispatcher
	if d.Workers < 0 {
		return fmt.Errorf("%w: dispatcher.workers must be non-negative, got %d", ErrConfigValidation, d.Workers)
	}

	if d.FragmentTimeout != nil && *d.FragmentTimeout < 0 {
		return fmt.Errorf("%w: dispatcher.fragment_timeout must be >= 0, got %s", ErrConfigValidation, *d.FragmentTimeout)
	}

	if d.CacheSize != nil && *d.CacheSize < 0 {
		return fmt.Errorf("%w: dispatcher.cache_size must be non-negative, got %d", ErrConfigValidation, *d.CacheSize)
	}

	return nil
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *int {
	return &i
}

func durationPtr(d time.Duration) *time.Duration {
	return &d
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	config := &Config{}
	applyDefaults(config)

	return config
}

// applyDefaults applies default values to missing configuration fields
func applyDefaults(config *Config) {
	if config.InputDir == "" {
		config.InputDir = defaultInputDir
	}

	defaults := scanner.DefaultOptions()

	if config.Scanner.InitialSliceSize == 0 {
		config.Scanner.InitialSliceSize = defaults.InitialSliceSize
	}

	if config.Scanner.MaxSliceSize == 0 {
		config.Scanner.MaxSliceSize = max(defaults.MaxSliceSize, config.Scanner.InitialSliceSize)
	}

	if config.Scanner.MinSliceSize == 0 {
		config.Scanner.MinSliceSize = min(defaults.MinSliceSize, config.Scanner.InitialSliceSize)
	}

	if config.Scanner.MergeAdjacentSlices == nil {
		config.Scanner.MergeAdjacentSlices = boolPtr(defaults.MergeAdjacentSlices)
	}

	if config.Dispatcher.Workers == 0 {
		config.Dispatcher.Workers = runtime.NumCPU()
	}

	if config.Dispatcher.FragmentTimeout == nil {
		config.Dispatcher.FragmentTimeout = durationPtr(defaultFragmentTimeout)
	}

	if config.Dispatcher.CacheSize == nil {
		config.Dispatcher.CacheSize = intPtr(defaultCacheSize)
	}

	if config.Output.Dir == "" {
		config.Output.Dir = defaultOutputDir
	}
}

// loadEnvFiles loads .env files if they exist
func loadEnvFiles() error {
	if fileExists(".env") {
		err := godotenv.Load(".env")
		if err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	return nil
}

var (
	bracedEnvVar = regexp.MustCompile(`\$\{([^}]+)\}`)
	plainEnvVar  = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(s string) string {
	s = bracedEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})

	return plainEnvVar.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[1:])
	})
}

// expandConfigEnvVars expands environment variables in path and title fields
func expandConfigEnvVars(config *Config) {
	config.InputDir = expandEnvVars(config.InputDir)
	config.Output.Dir = expandEnvVars(config.Output.Dir)
	config.Output.Title = expandEnvVars(config.Output.Title)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// ScannerOptions converts the scanner section into scanner options
func (c *Config) ScannerOptions(logger *zerolog.Logger) scanner.Options {
	merge := scanner.DefaultOptions().MergeAdjacentSlices
	if c.Scanner.MergeAdjacentSlices != nil {
		merge = *c.Scanner.MergeAdjacentSlices
	}

	return scanner.Options{
		InitialSliceSize:    c.Scanner.InitialSliceSize,
		MaxSliceSize:        c.Scanner.MaxSliceSize,
		MinSliceSize:        c.Scanner.MinSliceSize,
		MergeAdjacentSlices: merge,
		DebugMode:           c.Scanner.Debug,
		Logger:              logger,
	}
}

// DispatcherOptions converts the dispatcher section into dispatcher options.
// The scanner is built from the scanner section.
func (c *Config) DispatcherOptions(logger *zerolog.Logger) dispatcher.Options {
	opts := dispatcher.DefaultOptions()
	opts.Parallel = c.Dispatcher.Parallel
	opts.DebugMode = c.Scanner.Debug
	opts.Title = c.Output.Title
	opts.Logger = logger
	opts.Scanner = scanner.New(c.ScannerOptions(logger))

	if c.Dispatcher.Workers > 0 {
		opts.Workers = c.Dispatcher.Workers
	}

	if c.Dispatcher.FragmentTimeout != nil {
		opts.FragmentTimeout = *c.Dispatcher.FragmentTimeout
	}

	if c.Dispatcher.CacheSize != nil {
		opts.CacheSize = *c.Dispatcher.CacheSize
	}

	return opts
}

// CompilerOptions converts the compilers section into built-in compiler options
func (c *Config) CompilerOptions() compilers.Options {
	return compilers.Options{
		MinifyCSS: c.Compilers.MinifyCSS,
		MinifyJS:  c.Compilers.MinifyJS,
		StrictCSS: c.Compilers.StrictCSS,
		StrictJS:  c.Compilers.StrictJS,
	}
}

// NewDispatcher builds a dispatcher with the built-in compilers configured by c
func (c *Config) NewDispatcher(logger *zerolog.Logger) (*dispatcher.Dispatcher, error) {
	registry, err := compilers.Default(c.CompilerOptions())
	if err != nil {
		return nil, err
	}

	return dispatcher.New(registry, c.DispatcherOptions(logger)), nil
}
