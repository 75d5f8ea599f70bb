package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// DiscordConfig is what playback needs to join a voice channel.
// An empty ChannelID means the busiest voice channel of the guild.
type DiscordConfig struct {
	Token     string `env:"DISCORD_TOKEN, required"`
	GuildID   string `env:"DISCORD_GUILD_ID, required"`
	ChannelID string `env:"DISCORD_CHANNEL_ID"`
}

func NewDiscordConfigFromEnv() (*DiscordConfig, error) {
	var cfg DiscordConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
