package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/twpayne/go-rastersample/internal/demfetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Download DEM tiles over FTP",
	Long:  "Downloads the files of an FTP directory matching a pattern into the raster directory, skipping tiles that are already present.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		url := cfg.Fetch.URL
		if len(args) > 0 {
			url = args[0]
		}
		if url == "" {
			return eris.New("no URL given (set fetch.url)")
		}
		pattern := cfg.Fetch.Pattern
		if cmd.Flags().Changed("pattern") {
			pattern, _ = cmd.Flags().GetString("pattern")
		}
		destDir := cfg.Raster.Path
		if cmd.Flags().Changed("dest") {
			destDir, _ = cmd.Flags().GetString("dest")
		}
		if destDir == "" {
			return eris.New("no destination directory (set raster.path or --dest)")
		}

		limit := rate.Inf
		if cfg.Fetch.Rate > 0 {
			limit = rate.Limit(cfg.Fetch.Rate)
		}
		fetcher := demfetch.NewFetcher(
			demfetch.WithLogin(cfg.Fetch.User, cfg.Fetch.Pass),
			demfetch.WithRate(limit, 1),
		)
		downloaded, err := fetcher.Fetch(ctx, url, destDir, pattern)
		if err != nil {
			return err
		}
		fmt.Printf("downloaded %d tiles to %s\n", len(downloaded), destDir)
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("pattern", "", "glob matched against remote filenames")
	fetchCmd.Flags().String("dest", "", "destination directory (default raster.path)")
	rootCmd.AddCommand(fetchCmd)
}
