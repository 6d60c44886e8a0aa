// Package config loads the YAML configuration file into typed structures.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pixieveil/pixieveil/types"
)

// Config is the root of the YAML configuration file.
type Config struct {
	DicomServer          DicomServerConfig            `yaml:"dicom_server"`
	Storage              StorageConfig                `yaml:"storage"`
	Study                StudyConfig                  `yaml:"study"`
	SeriesFilter         SeriesFilterConfig            `yaml:"series_filter"`
	Anonymization        AnonymizationConfig          `yaml:"anonymization"`
	AnonymizationProfiles map[string]AnonymizationProfile `yaml:"anonymization_profiles"`
	HTTPServer           HTTPServerConfig              `yaml:"http_server"`
}

// DicomServerConfig binds the SCP listener. StorageSOPClasses lists the
// Storage SOP Class UIDs advertised during association negotiation;
// Verification is always advertised regardless.
type DicomServerConfig struct {
	IP                string   `yaml:"ip"`
	Port              int      `yaml:"port"`
	AETitle           string   `yaml:"ae_title"`
	StorageSOPClasses []string `yaml:"storage_sop_classes"`
}

// StorageConfig names the on-disk roots and remote upload endpoint.
type StorageConfig struct {
	BasePath     string             `yaml:"base_path"`
	TempPath     string             `yaml:"temp_path"`
	RemoteStorage RemoteStorageConfig `yaml:"remote_storage"`
}

// RemoteStorageConfig is the upload target. An empty BaseURL disables uploads.
type RemoteStorageConfig struct {
	BaseURL   string `yaml:"base_url"`
	AuthToken string `yaml:"auth_token"`
}

// StudyConfig governs the completion tracker's quiescence window. Pointer
// fields distinguish "absent, use the default" from an explicit zero.
type StudyConfig struct {
	CompletionTimeoutSeconds       *int `yaml:"completion_timeout"`
	CompletionCheckIntervalSeconds *int `yaml:"completion_check_interval"`
}

// SeriesFilterConfig configures the pre-anonymisation drop predicate.
type SeriesFilterConfig struct {
	ExcludeModalities  []string `yaml:"exclude_modalities"`
	KeepOriginalSeries bool     `yaml:"keep_original_series"`
}

// AnonymizationConfig names the default profile to apply.
type AnonymizationConfig struct {
	Default string `yaml:"default"`
}

// AnonymizationProfile maps DICOM attribute names to actions, plus the
// global switches that apply across the whole profile.
type AnonymizationProfile struct {
	Actions          map[string]string `yaml:",inline"`
	PixelBlackout    bool              `yaml:"PixelBlackout"`
	KeepPrivateTags  bool              `yaml:"KeepPrivateTags"`
	RetainStudyDate  bool              `yaml:"RetainStudyDate"`
}

// HTTPServerConfig binds the read-only dashboard.
type HTTPServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

// defaults supplies the documented defaults for fields a config file
// may omit.
func defaults() Config {
	return Config{
		DicomServer:   DicomServerConfig{IP: "0.0.0.0", Port: 11112, AETitle: "PIXIEVEIL"},
		Anonymization: AnonymizationConfig{Default: "DEFAULT"},
		HTTPServer:    HTTPServerConfig{IP: "0.0.0.0", Port: 8080},
	}
}

// Load reads and parses the YAML file at path, applying defaults for
// unspecified fields and validating the required storage paths. An invalid
// or missing configuration is a fatal startup error per the error taxonomy.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the closed set of required fields.
func (c *Config) Validate() error {
	if c.Storage.BasePath == "" {
		return fmt.Errorf("config: storage.base_path is required")
	}
	if c.Storage.TempPath == "" {
		return fmt.Errorf("config: storage.temp_path is required")
	}
	return nil
}

// CompletionTimeout returns the configured quiescence window in seconds,
// falling back to 120 when the option is absent. An explicit zero is
// honoured: a study then completes on the first tick after its last image.
func (c *Config) CompletionTimeout() int {
	if c.Study.CompletionTimeoutSeconds == nil {
		return 120
	}
	return *c.Study.CompletionTimeoutSeconds
}

// CompletionCheckInterval returns the tracker period in seconds, falling
// back to 30 when the option is absent.
func (c *Config) CompletionCheckInterval() int {
	if c.Study.CompletionCheckIntervalSeconds == nil || *c.Study.CompletionCheckIntervalSeconds <= 0 {
		return 30
	}
	return *c.Study.CompletionCheckIntervalSeconds
}

// StorageSOPClassUIDs returns the configured Storage SOP Class UIDs, or
// the default set (CT, MR, Secondary Capture) when none are configured.
func (c *Config) StorageSOPClassUIDs() []string {
	if len(c.DicomServer.StorageSOPClasses) > 0 {
		return c.DicomServer.StorageSOPClasses
	}
	return []string{
		types.CTImageStorage,
		types.MRImageStorage,
		types.SecondaryCaptureImageStorage,
	}
}

// RemoteUploadEnabled reports whether an upload base URL was configured.
func (c *Config) RemoteUploadEnabled() bool {
	return c.Storage.RemoteStorage.BaseURL != ""
}

// Profile returns the named anonymization profile, or ok=false if absent.
func (c *Config) Profile(name string) (AnonymizationProfile, bool) {
	p, ok := c.AnonymizationProfiles[name]
	return p, ok
}

// DefaultProfileName returns the configured default profile name, falling
// back to "DEFAULT".
func (c *Config) DefaultProfileName() string {
	if c.Anonymization.Default == "" {
		return "DEFAULT"
	}
	return c.Anonymization.Default
}
