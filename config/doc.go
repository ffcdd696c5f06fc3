// Package config defines configuration of a tile download.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (TILEFETCH_ prefix)
//   - YAML configuration file
//
// Flags override environment variables, which override the file.
//
// # Environment variables
//
//	TILEFETCH_BBOX            min_lat,min_lon,max_lat,max_lon
//	TILEFETCH_ZOOM            e.g. 12-14,16
//	TILEFETCH_SOURCE          TILEFETCH_URL      TILEFETCH_FORMAT
//	TILEFETCH_OUTPUT          TILEFETCH_ARCHIVE  TILEFETCH_NAME
//	TILEFETCH_WORKERS         TILEFETCH_ORDER    TILEFETCH_DELAY
//	TILEFETCH_TIMEOUT         TILEFETCH_USER_AGENT
//	TILEFETCH_RETRY_ATTEMPTS  TILEFETCH_RETRY_BACKOFF
//
// # File format
//
//	bbox: [44.3381, 15.0630, 44.2285, 15.3488] # min_lat, min_lon, max_lat, max_lon
//	zoom: "12-14,16"
//	source: osm          # or satellite, or a custom url + format
//	url: ""
//	format: ""
//	output: tiles_osm
//	archive: zadar.mbtiles
//	name: Zadar
//	workers: 1
//	order: columns       # or hilbert
//	delay: 200ms
//	timeout: 10s
//	user_agent: "my-app/1.0"
//	retry:
//	  attempts: 5
//	  backoff: 1s
package config
