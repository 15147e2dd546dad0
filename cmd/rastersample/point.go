package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/twpayne/go-rastersample"
)

var pointCmd = &cobra.Command{
	Use:   "point <latitude> <longitude>...",
	Short: "Print the DEM value at WGS84 coordinates",
	Args: func(_ *cobra.Command, args []string) error {
		if len(args) == 0 || len(args)%2 != 0 {
			return eris.New("expected latitude longitude pairs")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		coords := make([][]float64, 0, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			lat, err := strconv.ParseFloat(args[i], 64)
			if err != nil {
				return eris.Wrapf(err, "latitude %q", args[i])
			}
			lon, err := strconv.ParseFloat(args[i+1], 64)
			if err != nil {
				return eris.Wrapf(err, "longitude %q", args[i+1])
			}
			coords = append(coords, []float64{lon, lat})
		}

		var options []rastersample.PointServiceOption
		if cmd.Flags().Changed("resampling") {
			value, _ := cmd.Flags().GetString("resampling")
			resampling, err := rastersample.ParseResampling(value)
			if err != nil {
				return err
			}
			options = append(options, rastersample.WithPointResampling(resampling))
		}

		raster, err := openRaster(cfg.Raster)
		if err != nil {
			return err
		}
		defer func() {
			if err := raster.close(); err != nil {
				zap.L().Warn("close raster", zap.Error(err))
			}
		}()

		pointService, err := rastersample.NewPointService(raster.raster, raster.srid, options...)
		if err != nil {
			return err
		}
		values, err := pointService.Elevation4326(ctx, coords)
		if err != nil {
			return err
		}
		for _, value := range values {
			fmt.Println(value)
		}
		return nil
	},
}

func init() {
	pointCmd.Flags().String("resampling", "", "resampling (nearest, bilinear; default bilinear)")
	rootCmd.AddCommand(pointCmd)
}
