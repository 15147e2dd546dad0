package rastersample

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	missingTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rastersample_missing_tile_cache_hits_total",
		Help: "The total number of hits on the missing tile cache",
	})
	missingTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rastersample_missing_tile_cache_misses_total",
		Help: "The total number of misses on the missing tile cache",
	})
	openTileCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rastersample_open_tile_cache_hits_total",
		Help: "The total number of hits on the open tile cache",
	})
	openTileCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rastersample_open_tile_cache_misses_total",
		Help: "The total number of misses on the open tile cache",
	})
	openTileCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rastersample_open_tile_cache_evictions_total",
		Help: "The total number of evictions from the open tile cache",
	})
	emptyTilesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rastersample_empty_tiles_skipped_total",
		Help: "The total number of empty tiles detected before decompression",
	})
	sampledGeometries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rastersample_sampled_geometries_total",
		Help: "The total number of sampled geometries by outcome",
	}, []string{"outcome"})
)
