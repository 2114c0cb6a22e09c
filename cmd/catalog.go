package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"songbird/app"
	"songbird/models"
	"songbird/sentryhelper"
	"songbird/youtube"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for songs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return listTracks(cmd, map[string]string{"query": query}, func(ctx context.Context, a *app.App) []models.Track {
			tracks, _ := a.Session.Search(ctx, query)
			return tracks
		})
	},
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "List trending music videos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listTracks(cmd, nil, func(ctx context.Context, a *app.App) []models.Track {
			return a.Resolver.GetTrendingTracks(ctx)
		})
	},
}

var curatedCmd = &cobra.Command{
	Use:   "curated",
	Short: "List the curated artist hits",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listTracks(cmd, nil, func(ctx context.Context, a *app.App) []models.Track {
			return a.Resolver.GetCuratedArtistHits(ctx)
		})
	},
}

var playlistCmd = &cobra.Command{
	Use:   "playlist <id|url>",
	Short: "List the tracks of a playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := youtube.ResolvePlaylistID(args[0])
		if id == "" {
			return errors.New("no playlist id found in " + args[0])
		}
		return listTracks(cmd, map[string]string{"playlist_id": id}, func(ctx context.Context, a *app.App) []models.Track {
			return a.Resolver.ListPlaylistTracks(ctx, id)
		})
	},
}

// listTracks runs fn inside a Sentry transaction named after the command
// and prints what it returns.
func listTracks(cmd *cobra.Command, tags map[string]string, fn func(ctx context.Context, a *app.App) []models.Track) error {
	ctx, transaction := sentryhelper.StartTransaction(cmd.Context(), "cli."+cmd.Name(), "cli.command", tags)
	defer transaction.Finish()

	return withApp(ctx, func(a *app.App) error {
		printTracks(cmd.OutOrStdout(), fn(ctx, a))
		return nil
	})
}

func init() {
	rootCmd.AddCommand(searchCmd, trendingCmd, curatedCmd, playlistCmd)
}
