package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"piserver/audio"
	"piserver/eventpipe"
	"piserver/history"
	"piserver/indicator"
	"piserver/library"
	"piserver/mqtt"
	"piserver/poller"
	"piserver/reader"
	"piserver/relay"
	"piserver/rotary"
	"piserver/youtube"
)

// Config is the main configuration structure for piserver.
type Config struct {
	// MQTT connection settings
	MQTT mqtt.Config `yaml:"mqtt"`

	// Tag reader and polling
	Reader reader.Config `yaml:"reader"`
	Poller poller.Config `yaml:"poller"`

	// Playback, downloads and the tag library
	Audio   audio.Config   `yaml:"audio"`
	YouTube youtube.Config `yaml:"youtube"`
	Library library.Config `yaml:"library"`
	History history.Config `yaml:"history"`

	// Local inputs and outputs
	EventPipe eventpipe.Config `yaml:"event_pipe"`
	Indicator indicator.Config `yaml:"indicator"`
	Relay     relay.Config     `yaml:"relay"`
	Rotary    rotary.Config    `yaml:"rotary"`

	// General settings
	ClientID     string `yaml:"client_id"`
	Debug        bool   `yaml:"debug"`
	StopOnRemove bool   `yaml:"stop_on_remove"` // stop playback when the card is taken away
}

// envOverrides maps environment variables onto config fields.
var envOverrides = map[string]func(*Config, string){
	"PISERVER_CLIENT_ID":        func(c *Config, v string) { c.ClientID = v },
	"PISERVER_MQTT_HOST":        func(c *Config, v string) { c.MQTT.Host = v },
	"PISERVER_MQTT_USERNAME":    func(c *Config, v string) { c.MQTT.Username = v },
	"PISERVER_MQTT_PASSWORD":    func(c *Config, v string) { c.MQTT.Password = v },
	"PISERVER_LIBRARY_URL":      func(c *Config, v string) { c.Library.URL = v },
	"PISERVER_LIBRARY_PASSWORD": func(c *Config, v string) { c.Library.Password = v },
}

// loadConfig reads the YAML config file, then applies a .env file (if
// present) and PISERVER_* environment overrides.
func loadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyEnv(os.LookupEnv)
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	for key, set := range envOverrides {
		if v, ok := lookup(key); ok && v != "" {
			set(c, v)
		}
	}
}
