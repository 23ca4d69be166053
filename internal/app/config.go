package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/surendar1863/student-edge-program/internal/questionbank"
	"github.com/surendar1863/student-edge-program/internal/scoring"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

type GSheetConfig struct {
	SheetID         string `toml:"sheet_id"`
	SheetName       string `toml:"sheet_name"`
	CredentialsPath string `toml:"credentials_path"`
	Schedule        string `toml:"schedule"`
	// StudentsRange holds roll numbers in its first column, e.g. "A4:A200".
	StudentsRange  string `toml:"students_range"`
	FirstRow       int    `toml:"first_row"`
	ScoresColumn   string `toml:"scores_column"`
	TimestampRange string `toml:"timestamp_range"`
}

type Config struct {
	Server struct {
		Port string `toml:"port"`
	} `toml:"server"`

	API struct {
		RequiredHeaders []HeaderConfig `toml:"required_headers"`
	} `toml:"api"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	QuestionBank struct {
		Sections []questionbank.Source `toml:"sections"`
	} `toml:"question_bank"`

	Submission struct {
		ClampLikert bool `toml:"clamp_likert"`
	} `toml:"submission"`

	Scoring struct {
		ShortCap   float64            `toml:"short_cap"`
		LikertMode scoring.LikertMode `toml:"likert_mode"`
		// ValidateMarks rejects marks outside [0, question cap] at write time.
		ValidateMarks *bool `toml:"validate_marks"`
	} `toml:"scoring"`

	Export struct {
		ShortCap float64 `toml:"short_cap"`
	} `toml:"export"`

	GSheet []GSheetConfig `toml:"gsheet"`

	EmojiVariants []string `toml:"emoji_variants"`
}

func (c *Config) ScoringOptions() scoring.Options {
	opts := scoring.Options{ShortCap: c.Scoring.ShortCap, LikertMode: c.Scoring.LikertMode}
	if opts.ShortCap == 0 {
		opts.ShortCap = scoring.DefaultShortCap
	}
	if opts.LikertMode == "" {
		opts.LikertMode = scoring.LikertMarked
	}
	return opts
}

func (c *Config) ExportOptions() scoring.Options {
	opts := c.ScoringOptions()
	opts.ShortCap = c.Export.ShortCap
	if opts.ShortCap == 0 {
		opts.ShortCap = scoring.ExportShortCap
	}
	return opts
}

// WriteOptions bound marks at write time. Short answers take the larger of
// the scoring and export caps so no configured view clamps a stored mark away.
func (c *Config) WriteOptions() scoring.Options {
	opts := c.ScoringOptions()
	opts.ShortCap = max(opts.ShortCap, c.ExportOptions().ShortCap)
	return opts
}

func (c *Config) MarksValidated() bool {
	return c.Scoring.ValidateMarks == nil || *c.Scoring.ValidateMarks
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return ParseConfig(path, data)
}

func ParseConfig(path string, data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}
	if err := config.ScoringOptions().Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	seen := make(map[string]bool)
	for _, src := range config.QuestionBank.Sections {
		if src.Section == "" || src.Path == "" {
			return nil, fmt.Errorf("question bank entries need both section and path, got %+v", src)
		}
		if seen[src.Section] {
			return nil, fmt.Errorf("question bank section %q is listed twice", src.Section)
		}
		seen[src.Section] = true
	}

	logger.Debug.Printf("Loaded scoring config: %+v", config.ScoringOptions())

	return &config, nil
}
