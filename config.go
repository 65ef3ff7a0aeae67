package codplayer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds only the fields the transport, sink, sources and bus
// adapter actually consume. It deliberately does not reimplement the
// original daemon's full config hierarchy (daemon user/group, LCD
// brightness, IR mappings, plugin lists) since those surfaces are out
// of scope here.
type Config struct {
	// LibraryRoot is the on-disk library's DB_ROOT (see §6).
	LibraryRoot string `yaml:"library_root"`

	// AudioDevice names the output device passed to the sink; empty
	// selects the default device.
	AudioDevice string `yaml:"audio_device"`

	// QueueSeconds is the bounded packet queue's capacity in seconds
	// of audio at PacketsPerSecond; default 20 (=> 100 packets).
	QueueSeconds int `yaml:"queue_seconds"`

	// BusURL is the message bus connection string, e.g. a NATS URL.
	BusURL string `yaml:"bus_url"`

	// RadioStations is the configured list radio next/prev cycles
	// through.
	RadioStations []RadioStationConfig `yaml:"radio_stations"`
}

type RadioStationConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// QueueCapacity returns the packet queue size in packets, applying
// the documented default of 20s * PacketsPerSecond = 100.
func (c Config) QueueCapacity() int {
	secs := c.QueueSeconds
	if secs <= 0 {
		secs = 20
	}
	return secs * PacketsPerSecond
}

// LoadConfig reads and parses a YAML config file, replacing the
// original daemon's execfile()-as-config approach with a static,
// safely-parsed document.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewPlayerError(ConfigErrorKind, fmt.Errorf("reading config %s: %w", path, err))
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewPlayerError(ConfigErrorKind, fmt.Errorf("parsing config %s: %w", path, err))
	}
	if cfg.LibraryRoot == "" {
		return nil, NewPlayerError(ConfigErrorKind, fmt.Errorf("config %s: library_root is required", path))
	}
	return &cfg, nil
}
