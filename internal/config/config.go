package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "json"

	// ModeManual starts sessions only on request.
	ModeManual = "manual"
	// ModeScheduled starts and stops sessions from the schedule windows.
	ModeScheduled = "scheduled"

	// DefaultServerAddr is where the local status endpoint listens.
	DefaultServerAddr = "127.0.0.1:27190"
)

// ErrInvalid is returned by Validate for a config that cannot drive a session
var ErrInvalid = errors.New("invalid config")

// Config represents the focuslock configuration
type Config struct {
	Pomodoro            Pomodoro   `mapstructure:"pomodoro" json:"pomodoro"`
	BlockedApps         []string   `mapstructure:"blocked_apps" json:"blocked_apps"`
	BlockedSites        []string   `mapstructure:"blocked_sites" json:"blocked_sites"`
	Schedules           []Schedule `mapstructure:"schedules" json:"schedules"`
	Mode                string     `mapstructure:"mode" json:"mode"`
	PlayCompletionSound bool       `mapstructure:"play_completion_sound" json:"play_completion_sound"`
	CustomBgPath        *string    `mapstructure:"custom_bg_path" json:"custom_bg_path"`
	Server              Server     `mapstructure:"server" json:"server"`
}

// Pomodoro contains durations and the emergency override bookkeeping
type Pomodoro struct {
	WorkMinutes          int    `mapstructure:"work_minutes" json:"work_minutes"`
	BreakMinutes         int    `mapstructure:"break_minutes" json:"break_minutes"`
	EmergencyCancelLimit int    `mapstructure:"emergency_cancel_limit" json:"emergency_cancel_limit"`
	LastFocusDuration    int    `mapstructure:"last_focus_duration" json:"last_focus_duration"`
	EmergencyUsedCount   int    `mapstructure:"emergency_used_count" json:"emergency_used_count"`
	EmergencyResetMonth  string `mapstructure:"emergency_reset_month" json:"emergency_reset_month"`
}

// Schedule is a daily HH:MM window during which scheduled mode keeps a session running
type Schedule struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Start   string `mapstructure:"start" json:"start"`
	End     string `mapstructure:"end" json:"end"`
}

// Server contains the local HTTP listener settings
type Server struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

// MonthKey formats t as the YYYY-MM stamp used for quota resets
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthlyEmergencyRemaining returns the overrides left this month.
// The used count is reset when the stored month differs from now's month
func (p *Pomodoro) MonthlyEmergencyRemaining(now time.Time) int {
	month := MonthKey(now)
	if p.EmergencyResetMonth != month {
		p.EmergencyUsedCount = 0
		p.EmergencyResetMonth = month
	}

	remaining := p.EmergencyCancelLimit - p.EmergencyUsedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordEmergencyUse counts one override against now's month
func (p *Pomodoro) RecordEmergencyUse(now time.Time) {
	month := MonthKey(now)
	if p.EmergencyResetMonth != month {
		p.EmergencyUsedCount = 0
		p.EmergencyResetMonth = month
	}
	p.EmergencyUsedCount++
}

// IsScheduled reports whether the schedule windows drive sessions
func (c *Config) IsScheduled() bool {
	return c.Mode == ModeScheduled
}

// Clone returns a deep copy safe to hand to another goroutine
func (c *Config) Clone() *Config {
	out := *c
	out.BlockedApps = append([]string(nil), c.BlockedApps...)
	out.BlockedSites = append([]string(nil), c.BlockedSites...)
	out.Schedules = append([]Schedule(nil), c.Schedules...)
	if c.CustomBgPath != nil {
		bg := *c.CustomBgPath
		out.CustomBgPath = &bg
	}
	return &out
}

// Validate checks the values a session depends on
func (c *Config) Validate() error {
	if c.Pomodoro.WorkMinutes <= 0 {
		return errors.Wrapf(ErrInvalid, "work_minutes must be positive, got %d", c.Pomodoro.WorkMinutes)
	}
	if c.Pomodoro.BreakMinutes < 0 {
		return errors.Wrapf(ErrInvalid, "break_minutes must not be negative, got %d", c.Pomodoro.BreakMinutes)
	}
	if c.Pomodoro.EmergencyCancelLimit < 0 {
		return errors.Wrapf(ErrInvalid, "emergency_cancel_limit must not be negative, got %d", c.Pomodoro.EmergencyCancelLimit)
	}
	if c.Mode != ModeManual && c.Mode != ModeScheduled {
		return errors.Wrapf(ErrInvalid, "unknown mode %q", c.Mode)
	}
	for i, sc := range c.Schedules {
		if _, err := time.Parse("15:04", sc.Start); err != nil {
			return errors.Wrapf(ErrInvalid, "schedules[%d].start %q is not HH:MM", i, sc.Start)
		}
		if _, err := time.Parse("15:04", sc.End); err != nil {
			return errors.Wrapf(ErrInvalid, "schedules[%d].end %q is not HH:MM", i, sc.End)
		}
	}
	return nil
}

// Default returns the configuration written on first run
func Default() *Config {
	return &Config{
		Pomodoro: Pomodoro{
			WorkMinutes:          25,
			BreakMinutes:         5,
			EmergencyCancelLimit: 2,
			LastFocusDuration:    25,
		},
		BlockedApps: []string{"bilibili", "QQ"},
		BlockedSites: []string{
			"bilibili.com",
			"m.bilibili.com",
			"douyin.com",
			"weibo.com",
			"youtube.com",
			"twitter.com",
			"x.com",
			"reddit.com",
		},
		Schedules: []Schedule{
			{Enabled: true, Start: "09:00", End: "12:00"},
			{Enabled: true, Start: "14:00", End: "17:00"},
			{Enabled: false, Start: "19:00", End: "22:00"},
		},
		Mode:                ModeManual,
		PlayCompletionSound: true,
		Server:              Server{Addr: DefaultServerAddr},
	}
}

// Load loads the configuration from <dir>/config.json.
// If the file does not exist, defaults are persisted and returned
func Load(dir string) (*Config, error) {
	v := newViper(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, errors.Wrap(err, "read config")
		}
		cfg := Default()
		if err := Save(dir, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return decode(v)
}

// Save writes the configuration to <dir>/config.json atomically
func Save(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	return writeFileAtomic(Path(dir), data, 0644)
}

// Watch re-reads the config file whenever it changes on disk and passes
// the decoded result to onChange. Decode failures are passed as errors
func Watch(dir string, onChange func(*Config, error)) error {
	v := newViper(dir)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read config")
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(decode(v))
	})
	v.WatchConfig()
	return nil
}

// Path returns the config file path inside dir
func Path(dir string) string {
	return filepath.Join(dir, configName+"."+configType)
}

// Dir returns the focuslock configuration directory path
func Dir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".focuslock"), nil
}

// EnsureDir creates the config directory if it doesn't exist
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return dir, os.MkdirAll(dir, 0755)
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix("FOCUSLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("pomodoro.work_minutes", d.Pomodoro.WorkMinutes)
	v.SetDefault("pomodoro.break_minutes", d.Pomodoro.BreakMinutes)
	v.SetDefault("pomodoro.emergency_cancel_limit", d.Pomodoro.EmergencyCancelLimit)
	v.SetDefault("pomodoro.last_focus_duration", d.Pomodoro.LastFocusDuration)
	v.SetDefault("pomodoro.emergency_used_count", 0)
	v.SetDefault("pomodoro.emergency_reset_month", "")

	v.SetDefault("blocked_apps", []string{})
	v.SetDefault("blocked_sites", []string{})
	v.SetDefault("mode", ModeManual)
	v.SetDefault("play_completion_sound", true)
	v.SetDefault("server.addr", DefaultServerAddr)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.BlockedApps = dedupe(cfg.BlockedApps)
	cfg.BlockedSites = dedupe(cfg.BlockedSites)
	return &cfg, nil
}

// dedupe removes blank and duplicate entries, keeping first occurrence order
func dedupe(values []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(values))

	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		result = append(result, value)
	}

	return result
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "chmod temp file")
	}

	// Rename to final path (atomic)
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "rename config file")
	}
	return nil
}
