package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"songbird/app"
	"songbird/config"
	"songbird/logging"
	"songbird/models"
	"songbird/sentry"
)

var (
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "songbird",
	Short: "songbird plays songs from the YouTube catalog through a local player page.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			log.Warnf("Error loading %s: %v", envFile, err)
		}
		cfg = config.Load()
		logging.Setup(cfg.Options.LogLevel, cfg.Options.LogFormat)
		return sentry.Init(cfg.Options.SentryDSN)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		sentry.Flush()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp builds the app for a one-shot command and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printTracks(w io.Writer, tracks []models.Track) {
	if len(tracks) == 0 {
		fmt.Fprintln(w, "no tracks found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tARTIST\tTITLE\tDURATION")
	for i, t := range tracks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, t.ExternalMediaID, t.ArtistName, t.Title, t.DisplayDuration)
	}
	tw.Flush()
}
