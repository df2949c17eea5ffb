package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"snapdesk/internal/config"
	"snapdesk/internal/hotkey"
	"snapdesk/internal/logger"
)

// 通过 -ldflags "-X main.version=..." 设置
var version = "1.1.0"

var (
	cfgFile   string
	logLevel  string
	logPretty bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "snapdesk",
	Short: "SnapDesk - screenshot, annotate and share",
	Long: `SnapDesk stays in the system tray and captures the screen on a global hotkey.

Capture modes:
  region      drag a rectangle on a frozen copy of the desktop
  fullscreen  the whole virtual desktop
  window      the active window
  quick       full screen, saved and copied without a toast

After capture the shot can be annotated with pen, arrow, text, mosaic,
rectangle and ellipse tools before it is saved and copied.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		var runErr error
		// 部分平台的热键需要进程主线程
		hotkey.Run(func() { runErr = runResident() })
		return runErr
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "human readable console logs")

	rootCmd.AddCommand(captureCmd, configCmd, setHotkeyCmd, cleanupCmd, versionCmd)
}

// setup 为每个命令加载 .env, 配置文件和日志
func setup(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv()

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err, "(using defaults)")
	}

	opts := logger.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, File: cfg.Log.File}
	if logLevel != "" {
		opts.Level = logLevel
	}
	if logPretty {
		opts.Pretty = true
	}
	if err := logger.Init(opts); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print the version",
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("SnapDesk", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
