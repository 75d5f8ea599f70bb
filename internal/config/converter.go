package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"

	"github.com/glizzus/oggdca/internal/dca"
)

type ConverterConfig struct {
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg"`
	Bitrate    int    `env:"DCA_BITRATE, default=64000"`

	ToolName    string `env:"DCA_TOOL_NAME"`
	ToolVersion string `env:"DCA_TOOL_VERSION"`
	ToolURL     string `env:"DCA_TOOL_URL"`
	ToolAuthor  string `env:"DCA_TOOL_AUTHOR"`
}

func NewConverterConfigFromEnv() (*ConverterConfig, error) {
	return newConverterConfig(envconfig.OsLookuper())
}

func newConverterConfig(lookuper envconfig.Lookuper) (*ConverterConfig, error) {
	var cfg ConverterConfig
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if cfg.Bitrate <= 0 {
		return nil, fmt.Errorf("DCA_BITRATE must be positive, got %d", cfg.Bitrate)
	}
	return &cfg, nil
}

// Profile is the default container profile with the configured overrides.
func (c *ConverterConfig) Profile() dca.Profile {
	profile := dca.DefaultProfile()
	profile.Opus.Bitrate = c.Bitrate

	overrides := []struct {
		value  string
		target *string
	}{
		{c.ToolName, &profile.Tool.Name},
		{c.ToolVersion, &profile.Tool.Version},
		{c.ToolURL, &profile.Tool.URL},
		{c.ToolAuthor, &profile.Tool.Author},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.target = o.value
		}
	}
	return profile
}
