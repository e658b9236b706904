package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/compositor"
	"github.com/bryanchriswhite/snapframe/internal/export"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/bryanchriswhite/snapframe/internal/paint"
	"github.com/bryanchriswhite/snapframe/internal/session"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultProfileID names the profile that cannot be deleted
const DefaultProfileID = "default"

// EditorConfig holds the effect defaults applied to new screenshots
type EditorConfig struct {
	Padding          float64        `json:"padding" yaml:"padding"`
	CornerRadius     float64        `json:"corner_radius" yaml:"corner_radius"`
	ShadowBlur       float64        `json:"shadow_blur" yaml:"shadow_blur"`
	ShadowOffset     geometry.Point `json:"shadow_offset" yaml:"shadow_offset"`
	ShadowColor      paint.Color    `json:"shadow_color" yaml:"shadow_color"`
	BackgroundPreset string         `json:"background_preset" yaml:"background_preset"`
}

// ExportConfig holds export defaults
type ExportConfig struct {
	Format      string  `json:"format" yaml:"format"`
	JPEGQuality float64 `json:"jpeg_quality" yaml:"jpeg_quality"`
	OutputDir   string  `json:"output_dir" yaml:"output_dir"`
	FileName    string  `json:"file_name" yaml:"file_name"`
}

// RenderConfig tunes the preview render scheduler
type RenderConfig struct {
	DebounceMS int `json:"debounce_ms" yaml:"debounce_ms"`
}

// CaptureConfig selects and configures the capture backend
type CaptureConfig struct {
	Backend     string `json:"backend" yaml:"backend"`
	Thumbnails  bool   `json:"thumbnails" yaml:"thumbnails"`
	Interactive bool   `json:"interactive" yaml:"interactive"`
}

// Profile is a named set of editor settings that can be applied in one go
type Profile struct {
	ID     string       `json:"id" yaml:"id"`
	Name   string       `json:"name" yaml:"name"`
	Editor EditorConfig `json:"editor" yaml:"editor"`
}

// Config represents the application configuration
type Config struct {
	LogLevel   string        `json:"log_level" yaml:"log_level"`
	ServerPort int           `json:"server_port" yaml:"server_port"`
	Editor     EditorConfig  `json:"editor" yaml:"editor"`
	Export     ExportConfig  `json:"export" yaml:"export"`
	Render     RenderConfig  `json:"render" yaml:"render"`
	Capture    CaptureConfig `json:"capture" yaml:"capture"`
	Profiles   []Profile     `json:"profiles" yaml:"profiles"`
}

// DefaultEditor returns the built-in editor defaults
func DefaultEditor() EditorConfig {
	return EditorConfig{
		Padding:      compositor.DefaultPadding,
		CornerRadius: compositor.DefaultCornerRadius,
		ShadowBlur:   compositor.DefaultShadowBlur,
		ShadowOffset: compositor.DefaultShadowOffset,
		ShadowColor:  compositor.DefaultShadowColor,
	}
}

// Defaults returns the default configuration
func Defaults() *Config {
	outputDir := "Pictures"
	if home, err := os.UserHomeDir(); err == nil {
		outputDir = filepath.Join(home, "Pictures")
	}

	return &Config{
		LogLevel:   "info",
		ServerPort: 8080,
		Editor:     DefaultEditor(),
		Export: ExportConfig{
			Format:      string(export.FormatPNG),
			JPEGQuality: export.DefaultJPEGQuality,
			OutputDir:   outputDir,
		},
		Render:   RenderConfig{DebounceMS: int(session.DefaultDebounce / time.Millisecond)},
		Capture:  CaptureConfig{Backend: "auto"},
		Profiles: []Profile{{ID: DefaultProfileID, Name: "Default", Editor: DefaultEditor()}},
	}
}

// State builds the compositor state new screenshots start from. An unknown
// background preset falls back to the plain white canvas.
func (e EditorConfig) State() compositor.State {
	s := compositor.DefaultState()
	s.Padding = e.Padding
	s.CornerRadius = e.CornerRadius
	s.Shadow = compositor.Shadow{Color: e.ShadowColor, Blur: e.ShadowBlur, Offset: e.ShadowOffset}
	if e.BackgroundPreset != "" {
		if p, err := background.LookupPreset(e.BackgroundPreset); err == nil {
			s.Background = background.Gradient{Preset: p}
		} else {
			logger.WithComponent("config").Warn().Err(err).Msg("Ignoring background preset")
		}
	}
	return s.Clamp()
}

// Options converts the export section to encoder options
func (e ExportConfig) Options() (export.Options, error) {
	format, err := export.ParseFormat(e.Format)
	if err != nil {
		return export.Options{}, err
	}
	return export.Options{Format: format, Quality: e.JPEGQuality, FileName: e.FileName}, nil
}

// Debounce returns the configured debounce interval
func (r RenderConfig) Debounce() time.Duration {
	return time.Duration(r.DebounceMS) * time.Millisecond
}

// normalize clamps numeric fields and fills empty ones with defaults
func (c *Config) normalize() {
	def := Defaults()

	clampEditor := func(e *EditorConfig) {
		s := compositor.State{Padding: e.Padding, CornerRadius: e.CornerRadius, Shadow: compositor.Shadow{Blur: e.ShadowBlur}}.Clamp()
		e.Padding, e.CornerRadius, e.ShadowBlur = s.Padding, s.CornerRadius, s.Shadow.Blur
	}
	clampEditor(&c.Editor)
	for i := range c.Profiles {
		clampEditor(&c.Profiles[i].Editor)
	}

	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ServerPort <= 0 {
		c.ServerPort = def.ServerPort
	}
	if c.Export.Format == "" {
		c.Export.Format = def.Export.Format
	}
	if c.Export.JPEGQuality <= 0 || c.Export.JPEGQuality > 1 {
		c.Export.JPEGQuality = def.Export.JPEGQuality
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = def.Export.OutputDir
	}
	if c.Render.DebounceMS <= 0 {
		c.Render.DebounceMS = def.Render.DebounceMS
	}
	if c.Capture.Backend == "" {
		c.Capture.Backend = def.Capture.Backend
	}
	if c.Profiles == nil {
		c.Profiles = []Profile{}
	}
}

// validate rejects values that cannot be clamped into range
func (c *Config) validate() error {
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", c.LogLevel)
	}
	if c.ServerPort > 65535 {
		return fmt.Errorf("invalid port number: %d", c.ServerPort)
	}
	if _, err := export.ParseFormat(c.Export.Format); err != nil {
		return err
	}
	if c.Editor.BackgroundPreset != "" {
		if _, err := background.LookupPreset(c.Editor.BackgroundPreset); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.Capture.Backend) {
	case "auto", "x11", "kwin", "portal":
	default:
		return fmt.Errorf("unknown capture backend: %q", c.Capture.Backend)
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns ~/.config/snapframe/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "snapframe", "config.yaml"), nil
}

// NewManager creates a new configuration manager. An empty configFile uses
// DefaultPath; a missing file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	actualConfigPath := configFile
	if actualConfigPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		actualConfigPath = p
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Int("profiles", len(m.config.Profiles)).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	return m.config.clone()
}

func (c *Config) clone() *Config {
	cfg := *c
	cfg.Profiles = make([]Profile, len(c.Profiles))
	copy(cfg.Profiles, c.Profiles)
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	if cfg == nil {
		cfg = Defaults()
	}

	log := logger.WithComponent("config")
	log.Debug().
		Str("path", m.configPath).
		Int("profile_count", len(cfg.Profiles)).
		Msg("Saving config")

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		log.Error().Err(err).Str("config_dir", configDir).Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		log.Error().Err(err).Str("path", m.configPath).Msg("Failed to write config")
		return err
	}

	log.Debug().Str("path", m.configPath).Msg("Config saved successfully")
	return nil
}

// Update validates and replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	cfg = cfg.clone()
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// GetViper returns a viper view of the current configuration, keyed by the
// YAML field names (e.g. "editor.padding")
func (m *Manager) GetViper() (*viper.Viper, error) {
	data, err := yaml.Marshal(m.Get())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to read config into viper: %w", err)
	}
	return v, nil
}

// GetValue returns the value at a dotted key
func (m *Manager) GetValue(key string) (interface{}, error) {
	v, err := m.GetViper()
	if err != nil {
		return nil, err
	}
	if !v.IsSet(key) {
		return nil, fmt.Errorf("configuration key not found: %s", key)
	}
	return v.Get(key), nil
}

// SetValue sets the value at a dotted key, parsing value as a YAML scalar,
// then validates and saves the result
func (m *Manager) SetValue(key, value string) error {
	v, err := m.GetViper()
	if err != nil {
		return err
	}
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key not found: %s", key)
	}
	v.Set(key, parseScalar(value))

	data, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	logger.WithComponent("config").Info().Str("key", key).Str("value", value).Msg("Setting config value")
	return m.Update(cfg)
}

// parseScalar types a command-line value the way YAML would. Strings YAML
// cannot represent bare (such as "#ff0000") stay strings.
func parseScalar(value string) interface{} {
	var typed interface{}
	if err := yaml.Unmarshal([]byte(value), &typed); err != nil || typed == nil {
		return value
	}
	switch typed.(type) {
	case map[string]interface{}, []interface{}:
		return value
	}
	return typed
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// SetPort sets the server port
func (m *Manager) SetPort(port int) error {
	cfg := m.Get()
	cfg.ServerPort = port
	return m.Update(cfg)
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	cfg := m.Get()
	cfg.LogLevel = strings.ToLower(level)
	return m.Update(cfg)
}

// ListProfiles returns all profiles
func (m *Manager) ListProfiles() []Profile {
	return m.Get().Profiles
}

// GetProfile returns a profile by ID
func (m *Manager) GetProfile(profileID string) (*Profile, error) {
	for _, p := range m.ListProfiles() {
		if p.ID == profileID {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("profile not found: %s", profileID)
}

// CreateProfile saves editor under a new profile named name
func (m *Manager) CreateProfile(name string, editor EditorConfig) (*Profile, error) {
	cfg := m.Get()
	profile := Profile{ID: generateProfileID(cfg.Profiles, name), Name: name, Editor: editor}
	cfg.Profiles = append(cfg.Profiles, profile)

	if err := m.Update(cfg); err != nil {
		return nil, err
	}

	logger.WithComponent("config").Info().
		Str("profile_id", profile.ID).
		Str("profile_name", name).
		Msg("Created new profile")
	return m.GetProfile(profile.ID)
}

// DeleteProfile deletes a profile by ID
func (m *Manager) DeleteProfile(profileID string) error {
	if profileID == DefaultProfileID {
		return fmt.Errorf("cannot delete the default profile")
	}

	cfg := m.Get()
	filtered := make([]Profile, 0, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		if p.ID != profileID {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == len(cfg.Profiles) {
		return fmt.Errorf("profile not found: %s", profileID)
	}
	cfg.Profiles = filtered

	logger.WithComponent("config").Info().Str("profile_id", profileID).Msg("Deleted profile")
	return m.Update(cfg)
}

// ApplyProfile makes a profile's editor settings the current defaults
func (m *Manager) ApplyProfile(profileID string) error {
	profile, err := m.GetProfile(profileID)
	if err != nil {
		return err
	}
	cfg := m.Get()
	cfg.Editor = profile.Editor

	logger.WithComponent("config").Info().Str("profile_id", profileID).Msg("Applied profile")
	return m.Update(cfg)
}

// generateProfileID derives a unique slug from name
func generateProfileID(existing []Profile, name string) string {
	base := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	var result strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	id := result.String()
	if id == "" {
		id = "profile"
	}

	exists := func(id string) bool {
		for _, p := range existing {
			if p.ID == id {
				return true
			}
		}
		return false
	}

	originalID := id
	for counter := 1; exists(id); counter++ {
		id = fmt.Sprintf("%s-%d", originalID, counter)
	}
	return id
}
