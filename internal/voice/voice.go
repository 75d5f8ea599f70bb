package voice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// MaxAttendedChannel returns the voice channel with the most users in it,
// counted from the guild's voice states.
// This returns nil if no voice channel has any users.
func MaxAttendedChannel(channels []*discordgo.Channel, states []*discordgo.VoiceState) *discordgo.Channel {
	attendance := make(map[string]int, len(channels))
	for _, state := range states {
		attendance[state.ChannelID]++
	}

	var maxAttendedChannel *discordgo.Channel
	maxAttended := 0

	for _, channel := range channels {
		if channel.Type != discordgo.ChannelTypeGuildVoice {
			continue
		}

		if attendance[channel.ID] > maxAttended {
			maxAttendedChannel = channel
			maxAttended = attendance[channel.ID]
		}
	}

	return maxAttendedChannel
}

type VoiceChannelFunc func(*discordgo.Session, *discordgo.VoiceConnection) error

// WithVoiceChannel is a utility function
// that joins a voice channel and executes a callback.
// It handles the voice state updates for you.
func WithVoiceChannel(s *discordgo.Session, guildID, channelID string, callback VoiceChannelFunc) error {
	slog.Debug("joining voice channel", "guildID", guildID, "channelID", channelID)
	voiceConn, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("unable to join the voice channel: %w", err)
	}

	if err := voiceConn.Speaking(true); err != nil {
		return fmt.Errorf("error setting speaking state to 'true': %w", err)
	}
	defer func() {
		if err := voiceConn.Speaking(false); err != nil {
			slog.Error("failed to stop speaking", "error", err)
		}

		if err := voiceConn.Disconnect(); err != nil {
			slog.Error("failed to disconnect", "error", err)
		}
	}()

	if err = callback(s, voiceConn); err != nil {
		return fmt.Errorf("error executing callback: %w", err)
	}

	return nil
}

// Play joins the channel and streams every frame of source into it.
// An empty channelID picks the busiest voice channel of the guild.
func Play(ctx context.Context, s *discordgo.Session, guildID, channelID string, source FrameSource) error {
	if channelID == "" {
		channel, err := busiestChannel(s, guildID)
		if err != nil {
			return err
		}
		channelID = channel.ID
	}

	return WithVoiceChannel(s, guildID, channelID, func(_ *discordgo.Session, vc *discordgo.VoiceConnection) error {
		start := time.Now()
		sent, err := StreamFrames(ctx, source, vc.OpusSend, DefaultSendTimeout)
		if err != nil {
			return fmt.Errorf("failed to stream audio after %d frames: %w", sent, err)
		}
		slog.Info("finished playback", "frames", sent, "elapsed", time.Since(start))
		return nil
	})
}

func busiestChannel(s *discordgo.Session, guildID string) (*discordgo.Channel, error) {
	channels, err := s.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild channels: %w", err)
	}

	var states []*discordgo.VoiceState
	if guild, err := s.State.Guild(guildID); err == nil {
		states = guild.VoiceStates
	}

	channel := MaxAttendedChannel(channels, states)
	if channel == nil {
		return nil, fmt.Errorf("no occupied voice channel in guild %s", guildID)
	}
	return channel, nil
}

// NewSession returns a bot session that tracks guilds and voice states,
// which is what Play needs to find the busiest channel. The session is not
// opened.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("logged in", "user", r.User.Username, "guilds", len(r.Guilds))
	})

	return s, nil
}
