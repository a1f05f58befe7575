package appconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/stevecastle/depthviz/platform"
)

// ModelConfig locates the exported depth network.
type ModelConfig struct {
	Path                 string `json:"path"`
	ConfigPath           string `json:"configPath"`
	ORTSharedLibraryPath string `json:"ortSharedLibraryPath"`
	DeviceID             int    `json:"deviceId"`
}

// FrameConfig controls how frames are resized before inference. Zero width or
// height keeps the native resolution.
type FrameConfig struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Interpolation string `json:"interpolation"`
}

// S3Config enables uploading rendered images. Empty bucket disables it.
type S3Config struct {
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
}

// Config holds the evaluation run settings.
type Config struct {
	// Dataset selects the indexed dataset to visualize.
	Dataset string `json:"dataset"`
	// Cache is the output directory for rendered images.
	Cache string `json:"cache"`
	// CPU disables the accelerator.
	CPU       bool `json:"cpu"`
	NumVideos int  `json:"numVideos"`

	// IndexPath is the sqlite frame index.
	IndexPath string `json:"indexPath"`

	Model ModelConfig `json:"model"`
	Frame FrameConfig `json:"frame"`
	S3    S3Config    `json:"s3"`

	// Tasks lists the evaluation tasks to run, by id.
	Tasks []string `json:"tasks"`
}

// DefaultNumVideos is how many samples per split get rendered.
const DefaultNumVideos = 5

var (
	cfgMu sync.RWMutex
	cfg   Config
)

// DefaultIndexPath returns the default frame index path.
func DefaultIndexPath() string {
	return filepath.Join(platform.GetDataDir(), "frames.db")
}

// DefaultConfigPath returns the full path to config.json in the data directory.
func DefaultConfigPath() string {
	return filepath.Join(platform.GetDataDir(), "config.json")
}

// defaultORTPath returns the bundled onnxruntime library if one is installed.
func defaultORTPath() string {
	p := filepath.Join(platform.GetDataDir(), "onnxruntime", platform.OnnxRuntimeLibName())
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// defaultConfig returns a Config populated with sensible defaults.
func defaultConfig() Config {
	return Config{
		Cache:     platform.GetCacheDir(),
		NumVideos: DefaultNumVideos,
		IndexPath: DefaultIndexPath(),
		Model: ModelConfig{
			ORTSharedLibraryPath: defaultORTPath(),
		},
		Frame: FrameConfig{
			Interpolation: "bilinear",
		},
		Tasks: []string{"depth_visualization_task"},
	}
}

// Get returns a copy of the current in-memory config.
func Get() Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg
}

// Set replaces the in-memory config.
func Set(c Config) {
	cfgMu.Lock()
	cfg = c
	cfgMu.Unlock()
}

func isJSONObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func deepMergeJSON(dst, src map[string]json.RawMessage) {
	for k, v := range src {
		if existing, ok := dst[k]; ok && isJSONObject(existing) && isJSONObject(v) {
			var dstObj map[string]json.RawMessage
			var srcObj map[string]json.RawMessage
			if err := json.Unmarshal(existing, &dstObj); err != nil {
				dst[k] = v
				continue
			}
			if err := json.Unmarshal(v, &srcObj); err != nil {
				dst[k] = v
				continue
			}
			deepMergeJSON(dstObj, srcObj)
			merged, err := json.Marshal(dstObj)
			if err != nil {
				dst[k] = v
				continue
			}
			dst[k] = merged
			continue
		}
		dst[k] = v
	}
}

// applyDefaults fills zero fields from def.
func applyDefaults(c *Config, def Config) {
	if c.Cache == "" {
		c.Cache = def.Cache
	}
	if c.NumVideos <= 0 {
		c.NumVideos = def.NumVideos
	}
	if c.IndexPath == "" {
		c.IndexPath = def.IndexPath
	}
	if c.Model.ORTSharedLibraryPath == "" {
		c.Model.ORTSharedLibraryPath = def.Model.ORTSharedLibraryPath
	}
	if c.Frame.Interpolation == "" {
		c.Frame.Interpolation = def.Frame.Interpolation
	}
	if len(c.Tasks) == 0 {
		c.Tasks = def.Tasks
	}
}

// Load reads config.json from the data directory. See LoadFrom.
func Load() (Config, string, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadFrom reads the config at path and updates the in-memory config. If the
// file doesn't exist, it is created with default values. Missing fields are
// filled from the defaults without rewriting the file.
func LoadFrom(path string) (Config, string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return Config{}, "", fmt.Errorf("failed to create config directory %s: %w", filepath.Dir(path), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			def := defaultConfig()
			if _, saveErr := SaveTo(path, def); saveErr != nil {
				return Config{}, path, fmt.Errorf("failed to create default config file: %w", saveErr)
			}
			return def, path, nil
		}
		return Config{}, path, fmt.Errorf("failed to read config file at %s: %w", path, err)
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, path, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	applyDefaults(&c, defaultConfig())

	Set(c)
	return c, path, nil
}

// SaveTo writes the config to path, keeping keys in the existing file that
// Config does not know about. Returns the path.
func SaveTo(path string, c Config) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %w", err)
	}
	base := map[string]json.RawMessage{}
	if existing, readErr := os.ReadFile(path); readErr == nil {
		var tmp map[string]json.RawMessage
		if err := json.Unmarshal(existing, &tmp); err == nil {
			base = tmp
		}
	}

	marshaled, err := json.Marshal(c)
	if err != nil {
		return path, fmt.Errorf("failed to marshal config: %w", err)
	}
	incoming := map[string]json.RawMessage{}
	if err := json.Unmarshal(marshaled, &incoming); err != nil {
		return path, fmt.Errorf("failed to map config JSON: %w", err)
	}

	deepMergeJSON(base, incoming)

	mergedData, err := json.MarshalIndent(base, "", "  ")
	if err != nil {
		return path, fmt.Errorf("failed to marshal merged config: %w", err)
	}
	if err := os.WriteFile(path, mergedData, 0644); err != nil {
		return path, fmt.Errorf("failed to write config file: %w", err)
	}
	Set(c)
	return path, nil
}
