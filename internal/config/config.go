package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/mo"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	MinAutoInterval = 1
	MaxAutoInterval = 60
)

// Config is the immutable snapshot a playback session is started from.
type Config struct {
	Locale           string       `yaml:"locale" json:"locale"`
	AssetsPath       string       `yaml:"assets_path" json:"assets_path"`
	MediaKind        MediaKind    `yaml:"media_type" json:"media_type"`
	RootPath         string       `yaml:"root_path" json:"root_path"`
	VideoBackend     VideoBackend `yaml:"video_player" json:"video_player"`
	VideoBackendPath string       `yaml:"video_player_path" json:"video_player_path"`
	PlaylistPath     string       `yaml:"playlist_path" json:"playlist_path"`
	Repeat           bool         `yaml:"repeat" json:"repeat"`
	Auto             bool         `yaml:"auto" json:"auto"`
	AutoInterval     uint32       `yaml:"auto_interval" json:"auto_interval"`
	Loop             bool         `yaml:"loop" json:"loop"`
	Random           bool         `yaml:"random" json:"random"`

	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

type ServerConfig struct {
	Host        string        `yaml:"host" json:"host"`
	PortFrom    int           `yaml:"port_from" json:"port_from"`
	PortTo      int           `yaml:"port_to" json:"port_to"`
	ReadTimeout time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WorkerLimit int64         `yaml:"worker_limit" json:"worker_limit"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
}

func Default() *Config {
	return &Config{
		Locale:       DefaultLocale(),
		AssetsPath:   "./assets",
		AutoInterval: 5,
		Server: ServerConfig{
			Host:        "0.0.0.0",
			PortFrom:    40000,
			PortTo:      40100,
			ReadTimeout: 30 * time.Second,
			WorkerLimit: 4,
		},
		Database: DatabaseConfig{
			Path: "data/sessions.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

// Load returns the defaults overlaid with the file at path. JSON files are
// decoded strictly, anything else is read as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AutoInterval < MinAutoInterval || c.AutoInterval > MaxAutoInterval {
		return fmt.Errorf("%w: auto_interval must be within %d..=%d, got %d",
			ErrInvalidConfig, MinAutoInterval, MaxAutoInterval, c.AutoInterval)
	}
	if int(c.MediaKind) >= len(mediaKindNames) {
		return fmt.Errorf("%w: media_type %s", ErrInvalidConfig, c.MediaKind)
	}
	if int(c.VideoBackend) >= len(videoBackendNames) {
		return fmt.Errorf("%w: video_player %s", ErrInvalidConfig, c.VideoBackend)
	}
	if c.Server.PortFrom <= 0 || c.Server.PortTo < c.Server.PortFrom || c.Server.PortTo > 65535 {
		return fmt.Errorf("%w: port range %d..%d", ErrInvalidConfig, c.Server.PortFrom, c.Server.PortTo)
	}
	return nil
}

// CanPlay reports whether the snapshot carries enough to leave the configure screen.
func (c *Config) CanPlay() bool {
	if c.Playlist().IsPresent() {
		return true
	}
	switch c.MediaKind {
	case MediaKindServer, MediaKindImage:
		return true
	case MediaKindVideo:
		return c.VideoBackend == VideoBackendNative || c.VideoPlayerPath().IsPresent()
	default:
		return false
	}
}

func (c *Config) Playlist() mo.Option[string] {
	return nonEmpty(c.PlaylistPath)
}

func (c *Config) VideoPlayerPath() mo.Option[string] {
	return nonEmpty(c.VideoBackendPath)
}

// Source names what a session plays: the playlist file when one is set,
// the scanned root otherwise.
func (c *Config) Source() string {
	if p, ok := c.Playlist().Get(); ok {
		return p
	}
	return c.RootPath
}

func nonEmpty(s string) mo.Option[string] {
	if s == "" {
		return mo.None[string]()
	}
	return mo.Some(s)
}

// DefaultLocale derives a locale such as en_US from the environment.
func DefaultLocale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			return v
		}
	}
	return "en_US"
}
