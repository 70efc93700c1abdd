// Package config loads configedit.yaml, applies defaults and CONFIGEDIT_*
// environment overrides, and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the file Load reads when no path is given.
const DefaultPath = "configedit.yaml"

// Config is the full configuration.
type Config struct {
	ProjectDir       string  `yaml:"project_dir"`
	EngCalDirRoot    string  `yaml:"eng_cal_dir_root" validate:"required"`
	WingDSMThreshold uint32  `yaml:"wing_dsm_threshold" validate:"gte=1"`
	SensorIDSpacing  uint32  `yaml:"sensor_id_spacing" validate:"gte=1"`
	A2DChannels      int     `yaml:"a2d_channels" validate:"gte=1"`
	A2DBaseRate      int     `yaml:"a2d_base_rate" validate:"gte=1"`
	MaxSampleID      uint32  `yaml:"max_sample_id" validate:"gte=1"`
	Storage          Storage `yaml:"storage"`
	Assets           Assets  `yaml:"assets"`
	Log              Log     `yaml:"log"`
	Metrics          Metrics `yaml:"metrics"`
}

// Storage selects the device capability table backend.
type Storage struct {
	Driver      string `yaml:"driver" validate:"oneof=memory sqlite postgres"`
	SQLitePath  string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Assets selects where documents and calibration files are read from.
type Assets struct {
	Driver string `yaml:"driver" validate:"oneof=fs memory s3"`
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 configures the s3 asset driver.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	PathStyle bool   `yaml:"path_style"`
}

// Log configures the logger.
type Log struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Path  string `yaml:"path"`
}

// Metrics configures the Prometheus recorder.
type Metrics struct {
	Namespace string `yaml:"namespace"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	var c Config
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.EngCalDirRoot == "" {
		c.EngCalDirRoot = "Configuration/cal_files/Engineering/"
	}
	if c.WingDSMThreshold == 0 {
		c.WingDSMThreshold = 80
	}
	if c.SensorIDSpacing == 0 {
		c.SensorIDSpacing = 200
	}
	if c.A2DChannels == 0 {
		c.A2DChannels = 8
	}
	if c.A2DBaseRate == 0 {
		c.A2DBaseRate = 500
	}
	if c.MaxSampleID == 0 {
		c.MaxSampleID = 98
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Driver == "sqlite" && c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "configedit.db"
	}
	if c.Assets.Driver == "" {
		c.Assets.Driver = "fs"
	}
	if c.Assets.FSRoot == "" {
		c.Assets.FSRoot = c.ProjectDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "configedit"
	}
}

// Load reads path (DefaultPath when empty). A missing file is not an error;
// defaults and environment overrides still apply.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	var c Config
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied config path
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	strs := map[string]*string{
		"CONFIGEDIT_PROJECT_DIR":        &c.ProjectDir,
		"CONFIGEDIT_ENG_CAL_DIR_ROOT":   &c.EngCalDirRoot,
		"CONFIGEDIT_STORAGE_DRIVER":     &c.Storage.Driver,
		"CONFIGEDIT_SQLITE_PATH":        &c.Storage.SQLitePath,
		"CONFIGEDIT_POSTGRES_DSN":       &c.Storage.PostgresDSN,
		"CONFIGEDIT_ASSETS_DRIVER":      &c.Assets.Driver,
		"CONFIGEDIT_ASSETS_FS_ROOT":     &c.Assets.FSRoot,
		"CONFIGEDIT_ASSETS_S3_BUCKET":   &c.Assets.S3.Bucket,
		"CONFIGEDIT_ASSETS_S3_PREFIX":   &c.Assets.S3.Prefix,
		"CONFIGEDIT_ASSETS_S3_REGION":   &c.Assets.S3.Region,
		"CONFIGEDIT_ASSETS_S3_ENDPOINT": &c.Assets.S3.Endpoint,
		"CONFIGEDIT_LOG_LEVEL":          &c.Log.Level,
		"CONFIGEDIT_LOG_PATH":           &c.Log.Path,
		"CONFIGEDIT_METRICS_NAMESPACE":  &c.Metrics.Namespace,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	u32s := map[string]*uint32{
		"CONFIGEDIT_WING_DSM_THRESHOLD": &c.WingDSMThreshold,
		"CONFIGEDIT_SENSOR_ID_SPACING":  &c.SensorIDSpacing,
		"CONFIGEDIT_MAX_SAMPLE_ID":      &c.MaxSampleID,
	}
	for key, dst := range u32s {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = uint32(n)
	}
	ints := map[string]*int{
		"CONFIGEDIT_A2D_CHANNELS":  &c.A2DChannels,
		"CONFIGEDIT_A2D_BASE_RATE": &c.A2DBaseRate,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	if v, ok := lookup("CONFIGEDIT_ASSETS_S3_PATH_STYLE"); ok {
		c.Assets.S3.PathStyle = strings.EqualFold(v, "true")
	}
	return nil
}
