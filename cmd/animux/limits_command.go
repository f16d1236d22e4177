package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/spf13/cobra"

	"animux/internal/config"
)

func newLimitsCommand(ctx *commandContext) *cobra.Command {
	limitsCmd := &cobra.Command{
		Use:   "limits",
		Short: "Inspect and adjust worker pool concurrency caps",
	}
	limitsCmd.AddCommand(newLimitsGetCommand(ctx))
	limitsCmd.AddCommand(newLimitsSetCommand(ctx))
	return limitsCmd
}

func newLimitsGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the configured concurrency caps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			cores := "unknown"
			if count, err := cpu.Counts(true); err == nil {
				cores = strconv.Itoa(count)
			}

			rows := [][]string{
				{"video", strconv.Itoa(cfg.Concurrency.VideoMax)},
				{"audio", strconv.Itoa(cfg.Concurrency.AudioMax)},
				{"screenshot", strconv.Itoa(cfg.Concurrency.ScreenshotMax)},
				{"donor", strconv.Itoa(cfg.Concurrency.DonorMax)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Pool", "Max"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Host logical cores: %s\n", cores)
			return nil
		},
	}
}

func newLimitsSetCommand(ctx *commandContext) *cobra.Command {
	var (
		videoMax      int
		audioMax      int
		screenshotMax int
		donorMax      int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Persist new concurrency caps to the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, configPath, _, err := config.Load(path)
			if err != nil {
				return err
			}

			changed := false
			if cmd.Flags().Changed("video") {
				cfg.Concurrency.VideoMax = videoMax
				changed = true
			}
			if cmd.Flags().Changed("audio") {
				cfg.Concurrency.AudioMax = audioMax
				changed = true
			}
			if cmd.Flags().Changed("screenshot") {
				cfg.Concurrency.ScreenshotMax = screenshotMax
				changed = true
			}
			if cmd.Flags().Changed("donor") {
				cfg.Concurrency.DonorMax = donorMax
				changed = true
			}
			if !changed {
				return fmt.Errorf("no caps given, use --video/--audio/--screenshot/--donor")
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (caps apply to new jobs, running jobs are unaffected)\n", configPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&videoMax, "video", 0, "Video pool cap")
	cmd.Flags().IntVar(&audioMax, "audio", 0, "Audio pool cap")
	cmd.Flags().IntVar(&screenshotMax, "screenshot", 0, "Screenshot pool cap")
	cmd.Flags().IntVar(&donorMax, "donor", 0, "Donor merge pool cap")
	return cmd
}
