package cmd

import (
	"os"

	"deskrelay/internal/config"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "deskrelay",
	Short: "Remote control for the local desktop",
	Long: `deskrelay captures the screen onto a fixed 1280x720 canvas and injects
pointer and keyboard input on behalf of remote controllers connected over
WebSocket, WebRTC data channels or MCP.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().Int("monitor", 0, "Monitor index to capture")
	rootCmd.PersistentFlags().Int("quality", 0, "JPEG quality 1-100")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("dev", false, "Human-readable console logs")
}

// loadConfig reads --config and applies any flags set on the command line.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	applyFlags(cmd, &cfg)
	return cfg, cfg.Validate()
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("monitor") {
		cfg.Monitor, _ = flags.GetInt("monitor")
	}
	if flags.Changed("quality") {
		cfg.Quality, _ = flags.GetInt("quality")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("dev") {
		cfg.DevLog, _ = flags.GetBool("dev")
	}
	if f := flags.Lookup("addr"); f != nil && f.Changed {
		cfg.Addr = f.Value.String()
	}
	if f := flags.Lookup("fps"); f != nil && f.Changed {
		cfg.FPS, _ = flags.GetInt("fps")
	}
	if f := flags.Lookup("dry-run"); f != nil && f.Changed {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
	if f := flags.Lookup("mcp"); f != nil && f.Changed {
		cfg.MCP.Transport = f.Value.String()
	}
	if f := flags.Lookup("no-rtc"); f != nil && f.Changed {
		off, _ := flags.GetBool("no-rtc")
		cfg.RTC.Enabled = !off
	}
}
