package bot

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the [bot] table of the service config file.
type Config struct {
	Bot struct {
		Token string `toml:"token"`
		// EvaluatorIDs are the telegram users allowed to write marks.
		EvaluatorIDs []int64 `toml:"evaluator_ids"`
	} `toml:"bot"`
}

func ReadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("Failed to load config: %v", err)
	}
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is not specified in config")
	}

	return &cfg, nil
}
