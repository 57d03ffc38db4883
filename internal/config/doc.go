// Package config loads xrayview's TOML configuration.
//
// # Resolution Order
//
// For each setting the first non-empty source wins:
//
//  1. The --api-url flag (applied by the caller through SetAPIURL)
//  2. XRAY_API_URL / XRAY_MEDIA_URL in the environment; a .env file in the
//     working directory is loaded first by LoadDotEnv. REACT_APP_API_URL is
//     read as a fallback for api_url
//  3. ~/.config/xrayview/config.toml (or the --config path)
//  4. Built-in defaults
//
// A missing config file is not an error.
//
// # TOML Format
//
//	api_url = "http://localhost:8000/api"
//	media_url = ""              # defaults to scheme://host of api_url
//	log_dir = "~/.local/share/xrayview"
//	upload_timeout = "30s"
//	search_debounce = "250ms"   # "0s" queries on every keystroke
//
// Durations use time.ParseDuration syntax. Paths get tilde expansion.
//
// # Media URL
//
// Scans reference images either by absolute URL or by a server path such as
// /media/xrays/chest.png. Server paths are appended to MediaURL verbatim,
// so MediaURL must not end in a slash; Load trims it.
package config
