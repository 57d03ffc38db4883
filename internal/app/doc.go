// Package app is the composition root for xrayview.
//
// Setup loads the .env file and config, opens the file logger and builds the
// API client plus the scan query client on top of it. Run hands those to the
// TUI and blocks until the user quits; the CLI commands in cmd/xrayview use
// Setup directly.
//
//	Setup()
//	  ├─> config.LoadDotEnv()  .env into the environment (no overrides)
//	  ├─> config.Load()        file, then environment, then --api-url
//	  ├─> logging.New()        <log_dir>/xrayview.log
//	  ├─> xray.NewClient()     REST client
//	  └─> scans.NewClient()    list queries with supersede/cancel
//	Run()
//	  ├─> prefs.Load()         theme
//	  └─> ui.Run()             blocks
//
// Configuration errors are fatal. Failures talking to the API are not: the
// TUI starts regardless and shows them in its header and error banner.
package app
