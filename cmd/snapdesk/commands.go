package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"snapdesk/internal/config"
	"snapdesk/internal/hotkey"
	"snapdesk/internal/prompt"
	"snapdesk/internal/session"
	"snapdesk/internal/storage"
)

var (
	captureMode     string
	captureWait     time.Duration
	captureCopyPath bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take one screenshot and exit",
	Example: `  snapdesk capture --mode fullscreen
  snapdesk capture --mode region --wait 2m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := session.ParseMode(captureMode)
		if err != nil {
			return err
		}
		var runErr error
		hotkey.Run(func() { runErr = runOnce(mode, captureWait, captureCopyPath) })
		return runErr
	},
}

// runOnce 执行一次截图并打印保存路径
func runOnce(mode session.Mode, wait time.Duration, copyPath bool) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go a.ui.Run(runCtx)
	go a.sess.Run(runCtx)

	if !a.sess.Start(mode) {
		return errors.New("capture was not started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	if err := waitReady(ctx, a.sess); err != nil {
		a.sess.Cancel()
		return err
	}

	select {
	case path := <-a.delivered:
		fmt.Println(path)
		if copyPath {
			if err := a.clip.SetText(path); err != nil {
				return fmt.Errorf("copy path: %w", err)
			}
		}
	default:
		fmt.Fprintln(os.Stderr, "no screenshot saved")
	}
	return nil
}

func waitReady(ctx context.Context, s *session.Session) error {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("capture did not finish: %w", ctx.Err())
		case <-tick.C:
			if s.State() == session.Ready {
				return nil
			}
		}
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(cfg.Path())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

var setHotkeyCmd = &cobra.Command{
	Use:   "set-hotkey ACTION [COMBO]",
	Short: "Change the hotkey of an action",
	Long: "ACTION is one of " + strings.Join(config.Actions, ", ") + ".\n" +
		"COMBO is modifiers and a key joined by +, e.g. ctrl+shift+s.\n" +
		"Without COMBO a dialog asks for it, pre-filled with the current one.\n" +
		"Modifiers: " + strings.Join(hotkey.SupportedModifiers(), ", ") + ".",
	Example: `  snapdesk set-hotkey region ctrl+shift+a`,
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		current, ok := cfg.Hotkey(args[0])
		if !ok {
			return fmt.Errorf("unknown action %q", args[0])
		}
		combo := ""
		if len(args) == 2 {
			combo = args[1]
		} else {
			d := prompt.New("SnapDesk", "New combination for "+args[0]+":")
			if combo, ok = d.Ask(cmd.Context(), current.String()); !ok {
				return errors.New("no combination entered")
			}
		}
		h, err := config.ParseHotkey(combo)
		if err != nil {
			return err
		}
		if _, err := hotkey.ParseKey(h.Key); err != nil {
			return fmt.Errorf("%w (keys: %s)", err, strings.Join(hotkey.SupportedKeys(), " "))
		}
		if err := cfg.SetHotkey(args[0], h); err != nil {
			return err
		}
		fmt.Printf("%s hotkey set to %s\n", args[0], h)
		return nil
	},
}

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete screenshots older than a number of days",
	RunE: func(cmd *cobra.Command, args []string) error {
		days := cleanupDays
		if days <= 0 {
			days = cfg.Storage.RetentionDays
		}
		if days <= 0 {
			return errors.New("no retention set: pass --days or set storage.retention_days")
		}
		store := storage.NewStorage(storage.ExpandHome(cfg.Storage.Directory), cfg.Storage.Format, cfg.Storage.Quality)
		n, err := store.Cleanup(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d screenshot(s)\n", n)
		return nil
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureMode, "mode", "m", "region", "capture mode (region, fullscreen, window, quick)")
	captureCmd.Flags().DurationVar(&captureWait, "wait", 5*time.Minute, "give up after this long")
	captureCmd.Flags().BoolVar(&captureCopyPath, "copy-path", false, "put the saved file path on the clipboard instead of the image")
	configCmd.AddCommand(configShowCmd)
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "age in days (default storage.retention_days)")
}
