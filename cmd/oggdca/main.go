package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/glizzus/oggdca/internal/config"
	"github.com/glizzus/oggdca/internal/convert"
	"github.com/glizzus/oggdca/internal/datalayer"
	"github.com/glizzus/oggdca/internal/dca"
	"github.com/glizzus/oggdca/internal/generator"
	"github.com/glizzus/oggdca/internal/metadata"
	"github.com/glizzus/oggdca/internal/repository"
	"github.com/glizzus/oggdca/internal/voice"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Debug("No .env file found, continuing without it")
		} else {
			slog.Error("Failed to load .env file", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "oggdca",
		Usage: "Convert Opus audio into DCA1 containers for Discord bots",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
			return nil
		},
		Commands: []*cli.Command{
			convertCommand(),
			inspectCommand(),
			uploadCommand(),
			catalogCommand(),
			playCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("oggdca failed", "error", err)
		os.Exit(1)
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Transcode an input and write it as a DCA1 container",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "file or URL to convert, - for stdin", Required: true},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "where to write the container, - for stdout; defaults to stdout unless uploading"},
			&cli.StringFlag{Name: "metadata", Aliases: []string{"j"}, Usage: "JSON metadata file, native or yt-dlp --dump-json"},
			&cli.DurationFlag{Name: "start", Aliases: []string{"s"}, Usage: "skip this much of the input"},
			&cli.DurationFlag{Name: "duration", Aliases: []string{"t"}, Usage: "stop after this much audio"},
			&cli.StringFlag{Name: "title", Usage: "title when the metadata has none"},
			&cli.StringFlag{Name: "artist", Usage: "artist when the metadata has none"},
			&cli.BoolFlag{Name: "ogg", Usage: "the input is already Opus in Ogg, skip ffmpeg"},
			&cli.BoolFlag{Name: "upload", Usage: "store the container in object storage"},
			&cli.BoolFlag{Name: "catalog", Usage: "record the uploaded container in the catalog"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.NewConverterConfigFromEnv()
			if err != nil {
				return fmt.Errorf("failed to load converter config: %w", err)
			}

			var meta metadata.Metadata
			if path := c.String("metadata"); path != "" {
				if meta, err = metadata.Load(path); err != nil {
					return fmt.Errorf("failed to load metadata: %w", err)
				}
			}
			meta = meta.WithFallbacks(c.String("title"), c.String("artist"))

			converter := convert.NewConverter(cfg.Profile(), cfg.FFmpegPath)
			start := time.Now()

			var result *convert.Result
			input := c.String("input")
			if c.Bool("ogg") {
				r, closeInput, err := openInput(input)
				if err != nil {
					return err
				}
				defer closeInput()
				result, err = converter.ConvertOgg(c.Context, bufio.NewReader(r), meta)
				if err != nil {
					return fmt.Errorf("failed to convert %s: %w", input, err)
				}
			} else {
				if input == "-" {
					return cli.Exit("Reading stdin needs --ogg", 1)
				}
				result, err = converter.Convert(c.Context, convert.Request{
					Input:    input,
					Metadata: meta,
					Start:    c.Duration("start"),
					Duration: c.Duration("duration"),
				})
				if err != nil {
					return fmt.Errorf("failed to convert %s: %w", input, err)
				}
			}
			slog.Info("converted", "input", input, "frames", result.Frames, "bytes", len(result.Data), "elapsed", time.Since(start))

			publish := c.Bool("upload") || c.Bool("catalog")
			if output := outputPath(c.String("output"), publish); output != "" {
				if err := writeOutput(output, result.Data); err != nil {
					return err
				}
			}

			if publish {
				return upload(c.Context, result.Data, c.Bool("catalog"))
			}
			return nil
		},
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the header and frame statistics of a container",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("Please provide exactly one container file", 1)
			}
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}

			header, frames, err := dca.Parse(data)
			if err != nil {
				return fmt.Errorf("failed to parse container: %w", err)
			}

			encoded, err := json.MarshalIndent(header, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, string(encoded))

			audio := 0
			largest := 0
			for _, f := range frames {
				audio += len(f)
				largest = max(largest, len(f))
			}
			frameSize := time.Duration(header.Opus.FrameSize) * time.Second
			if header.Opus.SampleRate > 0 {
				frameSize /= time.Duration(header.Opus.SampleRate)
			}
			fmt.Fprintf(c.App.Writer, "frames: %d\naudio bytes: %d\nlargest frame: %d\nlength: %v\n",
				len(frames), audio, largest, time.Duration(len(frames))*frameSize)
			return nil
		},
	}
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Store an existing container in object storage",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "catalog", Usage: "record the container in the catalog"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("Please provide exactly one container file", 1)
			}
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}
			return upload(c.Context, data, c.Bool("catalog"))
		},
	}
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Browse stored containers",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the most recent tracks",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "how many tracks to show", Value: 20},
				},
				Action: func(c *cli.Context) error {
					pool, err := openCatalog(c.Context)
					if err != nil {
						return err
					}
					defer pool.Close()

					tracks, err := repository.NewPostgresTrackRepository(pool).List(c.Context, c.Int("limit"))
					if err != nil {
						return fmt.Errorf("failed to list tracks: %w", err)
					}
					if len(tracks) == 0 {
						slog.Info("No tracks found")
						return nil
					}

					w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tTITLE\tARTIST\tFRAMES\tKEY")
					for _, t := range tracks {
						fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.ID, t.Title, t.Artist, t.FrameCount, t.ObjectKey)
					}
					return w.Flush()
				},
			},
		},
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Play a container in a Discord voice channel",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "key", Usage: "play this object from storage instead of a file"},
		},
		Action: func(c *cli.Context) error {
			discordConfig, err := config.NewDiscordConfigFromEnv()
			if err != nil {
				return fmt.Errorf("failed to load discord config: %w", err)
			}

			var src io.ReadCloser
			if key := c.String("key"); key != "" {
				storage, err := datalayer.NewMinioStorageFromEnv()
				if err != nil {
					return fmt.Errorf("failed to create minio storage: %w", err)
				}
				if src, err = storage.Get(c.Context, key); err != nil {
					return fmt.Errorf("failed to fetch %s: %w", key, err)
				}
			} else {
				if c.NArg() != 1 {
					return cli.Exit("Please provide a container file or --key", 1)
				}
				if src, err = os.Open(c.Args().First()); err != nil {
					return err
				}
			}
			defer src.Close()

			decoder := dca.NewDecoder(bufio.NewReader(src))
			header, err := decoder.ReadHeader()
			if err != nil {
				return fmt.Errorf("failed to read container header: %w", err)
			}
			if header.Info != nil && header.Info.Title != nil {
				slog.Info("playing", "title", *header.Info.Title)
			}

			session, err := voice.NewSession(discordConfig.Token)
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			if err := session.Open(); err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			defer func() {
				if err := session.Close(); err != nil {
					slog.Warn("failed to close session", "error", err)
				}
			}()

			if discordConfig.ChannelID == "" {
				waitForGuild(c.Context, session, discordConfig.GuildID)
			}
			return voice.Play(c.Context, session, discordConfig.GuildID, discordConfig.ChannelID, decoder)
		},
	}
}

// upload stores data under a fresh key and optionally records it.
func upload(ctx context.Context, data []byte, catalog bool) error {
	minioConfig, err := config.NewMinioConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load minio config: %w", err)
	}
	storage, err := datalayer.NewMinioStorage(minioConfig)
	if err != nil {
		return fmt.Errorf("failed to create minio storage: %w", err)
	}
	if err := storage.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure minio bucket: %w", err)
	}

	publisher := &convert.Publisher{
		Storage: storage,
		Keys:    &generator.ObjectKeyGenerator{Prefix: minioConfig.Prefix},
	}
	if catalog {
		pool, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		publisher.Catalog = repository.NewPostgresTrackRepository(pool)
	}

	_, err = publisher.Publish(ctx, data)
	return err
}

func openCatalog(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := datalayer.NewPostgresPoolFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := datalayer.MigratePostgres(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}
	return pool, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// outputPath is where convert writes its container. An empty result means
// the container only goes to storage.
func outputPath(flag string, publish bool) string {
	if flag == "" && !publish {
		return "-"
	}
	return flag
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// waitForGuild gives the gateway a moment to deliver the guild's voice states.
func waitForGuild(ctx context.Context, s *discordgo.Session, guildID string) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(10 * time.Second)
	for {
		if _, err := s.State.Guild(guildID); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-timeout:
			slog.Warn("guild state not received", "guildID", guildID)
			return
		case <-ticker.C:
		}
	}
}
