package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jspencer/fieldlink/internal/alert"
	"github.com/jspencer/fieldlink/internal/api"
	"github.com/jspencer/fieldlink/internal/config"
	"github.com/jspencer/fieldlink/internal/db"
	"github.com/jspencer/fieldlink/internal/digest"
	"github.com/jspencer/fieldlink/internal/location"
	"github.com/jspencer/fieldlink/internal/notify"
	discordnotify "github.com/jspencer/fieldlink/internal/notify/discord"
	slacknotify "github.com/jspencer/fieldlink/internal/notify/slack"
	"github.com/jspencer/fieldlink/internal/observe"
	"github.com/jspencer/fieldlink/internal/session"
	"github.com/jspencer/fieldlink/internal/transport"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the dispatch agent",
		Long:  "Connects to the dispatch backend, restores any in-flight session, and serves the local observe API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "fieldlink.yaml", "path to Fieldlink config file")
	return cmd
}

func runAgent(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := cmd.OutOrStdout()

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	store := db.NewStore(gormDB)
	if snap, err := store.Snapshot(); err == nil && snap != nil && snap.Online {
		fmt.Fprintf(out, "Previous session was online (saved %s); resyncing with backend\n",
			snap.UpdatedAt.Format(time.RFC3339))
	}

	notifier, err := createNotifier(cfg)
	if err != nil {
		return err
	}

	client, err := api.New(api.Opts{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: time.Duration(cfg.API.TimeoutSec) * time.Second,
	})
	if err != nil {
		return err
	}

	var player alert.Player = alert.Noop{}
	if cfg.Alert.Command != "" {
		player = alert.NewCommand(cfg.Alert.Command)
	}
	loc := location.NewSource()

	agent, err := session.NewAgent(session.Opts{
		Backend:           client,
		Dialer:            transport.WebsocketDialer{},
		URL:               cfg.Realtime.URL,
		Persister:         store,
		Notifier:          notifier,
		Alert:             player,
		Location:          loc,
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval(),
		AuthRetryDelay:    cfg.Realtime.AuthRetryDelay(),
		CloseRetryDelay:   cfg.Realtime.CloseRetryDelay(),
		DialTimeout:       time.Duration(cfg.Realtime.DialTimeoutSec) * time.Second,
		Out:               out,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go func() {
		err := observe.Start(ctx, observe.StartOpts{
			Session:  agent,
			Location: loc,
			Port:     cfg.Observe.Port,
			Out:      out,
		})
		if err != nil {
			log.Printf("observe: %v", err)
			cancel()
		}
	}()

	if cfg.Digest.Enabled {
		sched, err := digest.New(digest.Opts{
			History:  store,
			Notifier: notifier,
			Cron:     cfg.Digest.Cron,
			Out:      out,
		})
		if err != nil {
			return err
		}
		go sched.Run(ctx)
	}

	return agent.Run(ctx)
}

// createNotifier builds a platform notifier from the config. An empty
// platform runs without notifications.
func createNotifier(cfg *config.Config) (notify.Notifier, error) {
	switch cfg.Notifier.Platform {
	case "":
		return notify.Noop{}, nil
	case "discord":
		return discordnotify.New(discordnotify.Opts{
			BotToken:  cfg.Notifier.Discord.BotToken,
			ChannelID: cfg.Notifier.Channel,
		})
	case "slack":
		return slacknotify.New(slacknotify.Opts{
			BotToken:  cfg.Notifier.Slack.BotToken,
			ChannelID: cfg.Notifier.Channel,
		})
	default:
		return nil, fmt.Errorf("notifier: unsupported platform %q", cfg.Notifier.Platform)
	}
}
