// Package option carries the functional-option configuration for
// Open/New/Create, unifying the teacher's two parallel option generations
// (pkg/options.Option and pkg/option.OpenOption/CreateOption) into one.
package option

import (
	"io"

	"github.com/go-logr/logr"

	"github.com/go-optical/isokit/consts"
	"github.com/go-optical/isokit/logging"
)

// ProgressCallback reports incremental progress during long write/extract
// operations.
type ProgressCallback func(currentFile string, bytesDone, bytesTotal int64, fileIndex, fileCount int)

// Config is the fully resolved set of options controlling a Volume's
// behavior. Both OpenOption and CreateOption mutate it.
type Config struct {
	Interchange      consts.VolumeType
	RockRidge        bool
	RockRidgeVersion string // "1.09" or "1.12"
	Joliet           bool
	JolietLevel      int // 1, 2, or 3
	UDF              bool
	AlwaysConsistent bool
	StripVersionInfo bool
	BootFileLocation string
	Logger           logr.Logger
	Progress         ProgressCallback
	Source           io.ReaderAt
}

// DefaultConfig mirrors the teacher's defaults: RockRidge+ElTorito-ready,
// version suffixes stripped on the read-facing API, logging discarded.
func DefaultConfig() Config {
	return Config{
		Interchange:      consts.InterchangeLevel3,
		RockRidge:        true,
		RockRidgeVersion: "1.12",
		Joliet:           false,
		JolietLevel:      3,
		UDF:              false,
		StripVersionInfo: true,
		BootFileLocation: "[BOOT]",
		Logger:           logr.Discard(),
	}
}

// OpenOption configures Open()/open_fp().
type OpenOption func(*Config)

// CreateOption configures New()/Create().
type CreateOption func(*Config)

func WithRockRidge(version string) CreateOption {
	return func(c *Config) {
		c.RockRidge = true
		if version != "" {
			c.RockRidgeVersion = version
		}
	}
}

func WithoutRockRidge() CreateOption {
	return func(c *Config) { c.RockRidge = false }
}

func WithJoliet(level int) CreateOption {
	return func(c *Config) {
		c.Joliet = true
		c.JolietLevel = level
	}
}

func WithUDF(enabled bool) CreateOption {
	return func(c *Config) { c.UDF = enabled }
}

func WithInterchangeLevel(level consts.VolumeType) CreateOption {
	return func(c *Config) { c.Interchange = level }
}

func WithAlwaysConsistent(enabled bool) CreateOption {
	return func(c *Config) { c.AlwaysConsistent = enabled }
}

// WithLogger supplies a caller-chosen logr.Logger; usable for both Open and
// Create since Config is shared.
func WithLogger(logger logr.Logger) func(*Config) {
	return func(c *Config) { c.Logger = logger }
}

// WithSimpleLogger installs the module's built-in colorized sink.
func WithSimpleLogger(writer io.Writer, verbosity int, color bool) func(*Config) {
	return func(c *Config) { c.Logger = logging.NewSimpleLogger(writer, verbosity, color) }
}

func WithProgress(cb ProgressCallback) func(*Config) {
	return func(c *Config) { c.Progress = cb }
}

func WithStripVersionInfo(enabled bool) func(*Config) {
	return func(c *Config) { c.StripVersionInfo = enabled }
}

func WithBootFileLocation(location string) func(*Config) {
	return func(c *Config) { c.BootFileLocation = location }
}

// ApplyOpen applies OpenOptions, each individually assignable from the
// shared-shape func(*Config) helpers (WithLogger, WithProgress, ...) even
// though OpenOption itself is a distinct named type.
func ApplyOpen(cfg *Config, opts ...OpenOption) {
	for _, opt := range opts {
		opt(cfg)
	}
}

// ApplyCreate applies CreateOptions, same shape as ApplyOpen.
func ApplyCreate(cfg *Config, opts ...CreateOption) {
	for _, opt := range opts {
		opt(cfg)
	}
}
