package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/five82/xrayview/internal/app"
	"github.com/five82/xrayview/internal/config"
	"github.com/five82/xrayview/internal/imageguard"
	"github.com/five82/xrayview/internal/logtail"
	"github.com/five82/xrayview/internal/scans"
	"github.com/five82/xrayview/internal/xray"
)

type rootFlags struct {
	configPath string
	apiURL     string
	debug      bool
}

func (f rootFlags) options() app.Options {
	return app.Options{ConfigPath: f.configPath, APIURL: f.apiURL, Debug: f.debug}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "xrayview",
		Short:         "Browse, filter and upload X-ray scans",
		Long:          `xrayview is a terminal client for an X-ray scan service. Without a subcommand it starts the interactive UI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), flags.options())
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.config/xrayview/config.toml)")
	root.PersistentFlags().StringVar(&flags.apiURL, "api-url", "", "scan service base URL, overrides config and environment")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "log at debug level")

	root.AddCommand(
		newListCmd(&flags),
		newOptionsCmd(&flags),
		newShowCmd(&flags),
		newUploadCmd(&flags),
		newLogsCmd(&flags),
	)
	return root
}

// withEnv runs fn with a set-up environment and closes it afterwards.
func withEnv(flags *rootFlags, fn func(*app.Env) error) error {
	env, err := app.Setup(flags.options())
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()
	return fn(env)
}

func addOutputFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "output", "o", formatTable, "output format: table, json or yaml")
}

func newListCmd(flags *rootFlags) *cobra.Command {
	var (
		format string
		search string
		values = map[scans.Field]*string{
			scans.BodyPart:    new(string),
			scans.Diagnosis:   new(string),
			scans.Institution: new(string),
		}
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scans, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			filters := scans.FilterState{}.WithSearch(strings.TrimSpace(search))
			for _, field := range scans.Fields {
				// An explicitly empty flag filters on the empty value.
				if cmd.Flags().Changed(flagName(field)) {
					filters = filters.With(field, *values[field])
				}
			}
			return withEnv(flags, func(env *app.Env) error {
				list, err := env.Scans.ApplyFilters(cmd.Context(), filters)
				if err != nil {
					return fmt.Errorf("list scans: %w", err)
				}
				return writeScans(cmd.OutOrStdout(), format, list)
			})
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "free-text search over description, diagnosis and tags")
	for _, field := range scans.Fields {
		cmd.Flags().StringVar(values[field], flagName(field), "", "exact "+strings.ToLower(field.Label())+" to match")
	}
	addOutputFlag(cmd, &format)
	return cmd
}

// flagName turns a filter field into its flag, body_part -> body-part.
func flagName(f scans.Field) string {
	return strings.ReplaceAll(f.String(), "_", "-")
}

func newOptionsCmd(flags *rootFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show the filter values present in the unfiltered scan list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return withEnv(flags, func(env *app.Env) error {
				if _, err := env.Scans.LoadAll(cmd.Context()); err != nil {
					return fmt.Errorf("load scans: %w", err)
				}
				return writeOptions(cmd.OutOrStdout(), format, env.Scans.Options())
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newShowCmd(flags *rootFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one scan with its resolved image URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return withEnv(flags, func(env *app.Env) error {
				scan, err := env.API.GetScan(cmd.Context(), xray.ScanID(args[0]))
				if err != nil {
					return fmt.Errorf("get scan %s: %w", args[0], err)
				}
				imageURL, _ := imageguard.Resolve(scan.Image, env.Config.MediaURL)
				return writeScan(cmd.OutOrStdout(), format, scanView{Scan: scan, ImageURL: imageURL})
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newUploadCmd(flags *rootFlags) *cobra.Command {
	var (
		format string
		form   xray.UploadForm
	)
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a new scan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if err := form.Validate(); err != nil {
				return fmt.Errorf("invalid scan: %s", strings.Join(xray.UserMessages(err), " "))
			}
			return withEnv(flags, func(env *app.Env) error {
				scan, err := env.API.CreateScan(cmd.Context(), form)
				if err != nil {
					return fmt.Errorf("upload scan: %s", strings.Join(xray.UserMessages(err), " "))
				}
				imageURL, _ := imageguard.Resolve(scan.Image, env.Config.MediaURL)
				return writeScan(cmd.OutOrStdout(), format, scanView{Scan: scan, ImageURL: imageURL})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&form.PatientID, "patient-id", "", "patient identifier")
	f.StringVar(&form.BodyPart, "body-part", "", "body part")
	f.StringVar(&form.ScanDate, "scan-date", "", "scan date, YYYY-MM-DD")
	f.StringVar(&form.Institution, "institution", "", "institution")
	f.StringVar(&form.Description, "description", "", "description")
	f.StringVar(&form.Diagnosis, "diagnosis", "", "diagnosis")
	f.StringVar(&form.Tags, "tags", "", "comma separated tags")
	f.StringVar(&form.ImagePath, "image", "", "path to the image file")
	addOutputFlag(cmd, &format)
	return cmd
}

func newLogsCmd(flags *rootFlags) *cobra.Command {
	var (
		lines int
		level string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the xrayview log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			minLevel, err := zerolog.ParseLevel(strings.ToLower(level))
			if err != nil {
				return fmt.Errorf("invalid level %q: %w", level, err)
			}
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tail, err := logtail.Read(cfg.LogPath(), lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range logtail.Filter(tail, minLevel) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines from the end of the log (0 for all)")
	cmd.Flags().StringVar(&level, "level", "debug", "lowest level to show: debug, info, warn or error")
	return cmd
}
