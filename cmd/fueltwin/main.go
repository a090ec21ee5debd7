package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/turbofuel/fueltwin/internal/config"
)

// set at build time via ldflags
var (
	version   = "0.1.0-dev"
	buildDate = "unknown"
)

const appName = "fueltwin"

// configErr holds the config load failure until logging is set up.
var configErr error

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Turboshaft fuel system digital twin",
		Long: `fueltwin simulates the fuel system of a turboshaft engine: throttle,
pumps, filter and sensors, with injectable sensor faults and component
health scoring.

It serves a control and streaming API, plays scripted scenarios, and
records runs to the configured storage backends.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadSettings(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", ".", "Directory containing "+config.FileName)
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("log-level", "", "Override logLevel (debug, info, warn, error)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(),
		newRunCmd(),
		newExportCmd(),
	)
	return rootCmd
}

// loadSettings reads .env, then the config file. Both are optional.
func loadSettings(cmd *cobra.Command) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Failed to read .env:", err)
	}

	dir, _ := cmd.Flags().GetString("config")
	configErr = config.Load(dir)

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		viper.Set("logLevel", level)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"version":   version,
					"buildDate": buildDate,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (built %s)\n", appName, version, buildDate)
			}
		},
	}
}
