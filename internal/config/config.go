// Package config loads leanne's settings.
//
// Sources are applied in order, later ones winning:
//   - built-in defaults
//   - a TOML file (-config, leanne.toml when present)
//   - a .env file (-env), for values not already in the environment
//   - the environment
//   - command line flags
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultConfigFile = "leanne.toml"
	DefaultEnvFile    = ".env"
	DefaultAddr       = "127.0.0.1:8080"

	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_BASE_URL"
	EnvModel   = "LEANNE_MODEL"
)

type Config struct {
	APIKey       string `toml:"-"`
	BaseURL      string `toml:"base_url"`
	Model        string `toml:"model"`
	SystemPrompt string `toml:"system_prompt"`

	Speech SpeechConfig `toml:"speech"`

	// RenderInterval bounds how often a streaming reply is redrawn.
	RenderInterval time.Duration `toml:"render_interval"`

	Dev        bool   `toml:"dev"`
	LogPath    string `toml:"log_path"`
	Serve      bool   `toml:"serve"`
	Addr       string `toml:"addr"`
	ConfigFile string `toml:"-"`
	EnvFile    string `toml:"-"`
}

type SpeechConfig struct {
	Enabled bool    `toml:"enabled"`
	Model   string  `toml:"model"`
	Voice   string  `toml:"voice"`
	Volume  float64 `toml:"volume"`
	Rate    float64 `toml:"rate"`
}

func Default() *Config {
	return &Config{
		Speech: SpeechConfig{
			Enabled: true,
			Model:   "tts-1",
			Voice:   "alloy",
			Volume:  0.8,
			Rate:    1,
		},
		RenderInterval: 50 * time.Millisecond,
		Addr:           DefaultAddr,
		ConfigFile:     DefaultConfigFile,
		EnvFile:        DefaultEnvFile,
	}
}

// Load builds the configuration from args (without the program name).
// A missing API key is not an error here; requests report it.
func Load(args []string) (*Config, error) {
	cfg := Default()

	fset := flag.NewFlagSet("leanne", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	configFile := fset.String("config", DefaultConfigFile, "Path to a TOML config file")
	envFile := fset.String("env", DefaultEnvFile, "Path to a .env file")
	dev := fset.Bool("dev", false, "Development mode")
	logPath := fset.String("logPath", "", "Path to save the log file")
	serve := fset.Bool("serve", false, "Run the local relay server instead of the terminal UI")
	addr := fset.String("addr", DefaultAddr, "Relay server listen address")
	model := fset.String("model", "", "Chat model")
	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	set := map[string]bool{}
	fset.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg.ConfigFile = *configFile
	cfg.EnvFile = *envFile
	if err := cfg.loadFile(set["config"]); err != nil {
		return nil, err
	}

	dotenv, err := readEnvFile(cfg.EnvFile, set["env"])
	if err != nil {
		return nil, err
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}
	cfg.APIKey = lookup(EnvAPIKey)
	if v := lookup(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := lookup(EnvModel); v != "" {
		cfg.Model = v
	}

	if set["dev"] {
		cfg.Dev = *dev
	}
	if set["logPath"] {
		cfg.LogPath = *logPath
	}
	if set["serve"] {
		cfg.Serve = *serve
	}
	if set["addr"] {
		cfg.Addr = *addr
	}
	if set["model"] {
		cfg.Model = *model
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes the TOML file over the defaults. The default file may be
// absent; an explicitly named one may not.
func (c *Config) loadFile(explicit bool) error {
	if c.ConfigFile == "" {
		return nil
	}
	_, err := toml.DecodeFile(c.ConfigFile, c)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return nil
	default:
		return fmt.Errorf("load config %s: %w", c.ConfigFile, err)
	}
}

func readEnvFile(path string, explicit bool) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	switch {
	case err == nil:
		return values, nil
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return nil, nil
	default:
		return nil, fmt.Errorf("load env file %s: %w", path, err)
	}
}

func (c *Config) Validate() error {
	if c.Speech.Volume < 0 || c.Speech.Volume > 1 {
		return fmt.Errorf("speech volume %v out of range [0, 1]", c.Speech.Volume)
	}
	if c.Speech.Rate < 0.5 || c.Speech.Rate > 2 {
		return fmt.Errorf("speech rate %v out of range [0.5, 2]", c.Speech.Rate)
	}
	if c.RenderInterval < 0 {
		return fmt.Errorf("render interval must not be negative")
	}
	if c.Serve && c.Addr == "" {
		return fmt.Errorf("addr is required with -serve")
	}
	return nil
}
