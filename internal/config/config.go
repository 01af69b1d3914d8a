package config

import (
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the root viewer configuration, loaded from YAML with
// command-line overrides applied in cmd/traceline.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Trace  TraceConfig  `yaml:"trace"`
	Viewer ViewerConfig `yaml:"viewer"`
	Auth   AuthConfig   `yaml:"auth"`
}

type ServerConfig struct {
	Addr   string `yaml:"addr"`
	WebDir string `yaml:"web_dir"`
}

type TraceConfig struct {
	Path      string `yaml:"path"`
	Snapshot  bool   `yaml:"snapshot"`   // cache parsed trace next to the source
	ViewsPath string `yaml:"views_path"` // saved-view bookmarks file
}

// ViewerConfig holds default query budgets, adjustable per request.
type ViewerConfig struct {
	MainSamples     int `yaml:"main_samples"`
	OverviewSamples int `yaml:"overview_samples"`
	LaneCount       int `yaml:"lane_count"`
	DensityBuckets  int `yaml:"density_buckets"`
}

type AuthConfig struct {
	PasswordHash string `yaml:"password_hash"` // bcrypt hash; empty disables auth
	SessionTTL   string `yaml:"session_ttl"`
}

// Default returns the baseline development config.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:   ":8099",
			WebDir: "./web",
		},
		Trace: TraceConfig{
			Snapshot:  true,
			ViewsPath: "./views.json",
		},
		Viewer: ViewerConfig{
			MainSamples:     10000,
			OverviewSamples: 10000,
			LaneCount:       1,
			DensityBuckets:  120,
		},
		Auth: AuthConfig{
			SessionTTL: "24h",
		},
	}
}

// Load reads the config file at path. A missing file is not an error; the
// default config is returned so the viewer runs with flags alone.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
