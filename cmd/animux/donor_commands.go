package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"animux/internal/donor"
	"animux/internal/library"
)

func newDonorCommand(ctx *commandContext) *cobra.Command {
	donorCmd := &cobra.Command{
		Use:   "donor",
		Short: "Match and merge donor tracks into library episodes",
	}
	donorCmd.AddCommand(newDonorScanCommand(ctx))
	donorCmd.AddCommand(newDonorMatchCommand(ctx))
	donorCmd.AddCommand(newDonorProcessCommand(ctx))
	donorCmd.AddCommand(newDonorEpisodesCommand(ctx))
	donorCmd.AddCommand(newDonorAddEpisodeCommand(ctx))
	return donorCmd
}

func newDonorScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <path>",
		Short: "Scan a donor file or directory and classify its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			files, err := donor.Scan(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(files))
			for _, file := range files {
				rows = append(rows, []string{
					file.Path,
					string(file.Kind),
					formatEpisodeNumber(file.EpisodeNumber),
					string(file.ContentType),
					file.DubGroup,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Path", "Kind", "Episode", "Type", "Group"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newDonorMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <path>",
		Short: "Correlate donor files with library episodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := library.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			matches, err := matchDonors(cmd, store, args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(matches))
			for _, match := range matches {
				target := ""
				if match.Target != nil {
					target = fmt.Sprintf("#%d %s", match.Target.ID, match.Target.SeriesTitle)
				}
				rows = append(rows, []string{
					match.File.Path,
					formatEpisodeNumber(match.File.EpisodeNumber),
					string(match.Confidence),
					target,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Donor", "Episode", "Confidence", "Target"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newDonorProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		language string
		title    string
		offset   float64
		fonts    []string
	)

	cmd := &cobra.Command{
		Use:   "process <path>",
		Short: "Merge every matched donor track into its episode",
		Long: `Scan the donor path, correlate files with library episodes, and merge
each matched track. Interrupting the command rolls back all committed tracks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := library.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			matches, err := matchDonors(cmd, store, args[0])
			if err != nil {
				return err
			}
			selections := make([]donor.TrackSelection, 0, len(matches))
			for _, match := range matches {
				if match.Target == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "skipping unmatched %s\n", match.File.Path)
					continue
				}
				selections = append(selections, donor.TrackSelection{
					Match:         match,
					Language:      language,
					Title:         title,
					OffsetSeconds: offset,
					Fonts:         fonts,
				})
			}
			if len(selections) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to merge")
				return nil
			}

			pipeline, err := donor.NewPipeline(cfg, store, ctx.ensureLogger())
			if err != nil {
				return err
			}

			// A SIGINT cancels the command context; translate that into a
			// pipeline cancel so committed tracks roll back.
			stop := make(chan struct{})
			defer close(stop)
			go func() {
				select {
				case <-cmd.Context().Done():
					pipeline.Cancel()
				case <-stop:
				}
			}()

			statuses, err := pipeline.Process(cmd.Context(), selections)
			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				rows = append(rows, []string{
					status.DonorPath,
					string(status.State),
					status.TrackID,
					status.Error,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Donor", "State", "Track", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return err
		},
	}

	cmd.Flags().StringVar(&language, "lang", "", "Language tag applied to merged tracks")
	cmd.Flags().StringVar(&title, "title", "", "Title applied to merged tracks")
	cmd.Flags().Float64Var(&offset, "offset", 0, "Sync offset in seconds applied to every track")
	cmd.Flags().StringArrayVar(&fonts, "font", nil, "Font file to copy alongside subtitle tracks (repeatable)")
	return cmd
}

func newDonorEpisodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes",
		Short: "List library episodes donor tracks can target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := library.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			episodes, err := store.Episodes(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(episodes))
			for _, episode := range episodes {
				rows = append(rows, []string{
					strconv.FormatInt(episode.ID, 10),
					episode.SeriesTitle,
					formatEpisodeNumber(episode.EpisodeNumber),
					string(episode.ContentType),
					episode.FilePath,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Series", "Episode", "Type", "File"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newDonorAddEpisodeCommand(ctx *commandContext) *cobra.Command {
	var (
		number      int
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "add-episode <series-title> <file>",
		Short: "Register an episode file in the library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := library.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			episode := library.Episode{
				SeriesTitle: args[0],
				ContentType: library.ContentType(contentType),
				FilePath:    args[1],
			}
			if cmd.Flags().Changed("number") {
				episode.EpisodeNumber = &number
			}
			added, err := store.AddEpisode(cmd.Context(), episode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added episode #%d (%s %s)\n",
				added.ID, added.SeriesTitle, formatEpisodeNumber(added.EpisodeNumber))
			return nil
		},
	}

	cmd.Flags().IntVar(&number, "number", 0, "Episode number (omit for specials)")
	cmd.Flags().StringVar(&contentType, "type", string(library.ContentSeries), "Content type (series, special, unknown)")
	return cmd
}

func matchDonors(cmd *cobra.Command, store *library.Store, path string) ([]donor.Match, error) {
	files, err := donor.Scan(path)
	if err != nil {
		return nil, err
	}
	episodes, err := store.Episodes(cmd.Context())
	if err != nil {
		return nil, err
	}
	return donor.NewMatcher(episodes).Match(files), nil
}

func formatEpisodeNumber(number *int) string {
	if number == nil {
		return "-"
	}
	return strconv.Itoa(*number)
}
