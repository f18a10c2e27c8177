package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/conorfennell/knolcards/internal/ingest"
	"github.com/conorfennell/knolcards/internal/review"
	"github.com/conorfennell/knolcards/internal/schedule"
	"github.com/conorfennell/knolcards/internal/source"
	"github.com/spf13/cobra"
)

// sourceFlags selects where import and check read notes from.
type sourceFlags struct {
	dir    string
	gitURL string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", "", "Directory to read notes from")
	cmd.Flags().StringVar(&f.gitURL, "git", "", "Git repository to read notes from")
	cmd.MarkFlagsMutuallyExclusive("dir", "git")
	cmd.MarkFlagsOneRequired("dir", "git")
}

func (f *sourceFlags) items(cmd *cobra.Command, a *app, update bool) ([]ingest.Item, error) {
	docs, err := source.Load(cmd.Context(), a.logger, source.Options{
		Dir:      f.dir,
		GitURL:   f.gitURL,
		ReposDir: a.cfg.Source.ReposDir,
	})
	if err != nil {
		return nil, err
	}
	return itemsFromDocuments(docs, update), nil
}

func itemsFromDocuments(docs []source.Document, update bool) []ingest.Item {
	items := make([]ingest.Item, 0, len(docs))
	for _, doc := range docs {
		content := doc.Content
		items = append(items, ingest.Item{
			Name:    doc.Name,
			Content: &content,
			Upload:  true,
			Update:  update,
		})
	}
	return items
}

func newImportCmd(a *app) *cobra.Command {
	var (
		src    sourceFlags
		update bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store every note found in a directory or git repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := src.items(cmd, a, update)
			if err != nil {
				return err
			}
			refs, err := a.ingestService().SubmitBatch(cmd.Context(), items)
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d of %d notes.\n", len(refs), len(items))
			return err
		},
	}
	src.register(cmd)
	cmd.Flags().BoolVar(&update, "update", false, "Replace the cards of notes that are already stored")
	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report which notes are already stored and which changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := src.items(cmd, a, false)
			if err != nil {
				return err
			}
			results, err := a.ingestService().CheckBatch(cmd.Context(), items)
			if err != nil {
				return err
			}
			printChecks(cmd.OutOrStdout(), results)
			return nil
		},
	}
	src.register(cmd)
	return cmd
}

func printChecks(w io.Writer, results []ingest.CheckResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTORED\tCHANGED")
	for _, r := range results {
		changed := "-"
		if r.Uploaded {
			changed = yesNo(r.Changed)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, yesNo(r.Uploaded), changed)
	}
	tw.Flush()
}

func newGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate NOTE...",
		Short: "Generate cards for the named notes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, names []string) error {
			ctx := cmd.Context()
			var ids []string
			for _, name := range names {
				note, err := a.db.FindNoteByName(ctx, name)
				if err != nil {
					return err
				}
				if note == nil {
					a.logger.Warn("Note not found", "name", name)
					continue
				}
				ids = append(ids, note.ID)
			}

			orchestrator, err := a.orchestrator()
			if err != nil {
				return err
			}
			result, err := orchestrator.Generate(ctx, ids)
			if result != nil {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Generated %d cards from %d notes.\n", len(result.Cards), result.Notes)
				for _, f := range result.Failures {
					fmt.Fprintf(out, "  skipped %s (%s): %s\n", f.NoteName, f.Stage, f.Reason)
				}
			}
			return err
		},
	}
}

func newDueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "List the questions due for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			due, err := a.reviewEngine().ListDue(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REVIEW\tNOTE\tQUESTION\tLAST REVIEW")
			for _, q := range due {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.ID, q.NoteName, oneLine(q.Question), formatUnix(q.LastReview))
			}
			return tw.Flush()
		},
	}
}

func newScoreCmd(a *app) *cobra.Command {
	var (
		correct    bool
		difficulty int
	)
	cmd := &cobra.Command{
		Use:   "score REVIEW_ID",
		Short: "Record a review outcome and schedule the next review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			current, err := a.db.FindReview(ctx, args[0])
			if err != nil {
				return err
			}
			if current == nil {
				return fmt.Errorf("%w: %s", review.ErrReviewNotFound, args[0])
			}

			plan := schedule.DefaultParams().Next(time.Now(), current.LastReview, current.NextReview, correct, difficulty)
			err = a.reviewEngine().RecordScore(ctx, review.NewScoreRequest(
				current.ID,
				current.CardID,
				plan.LastReview,
				plan.NextReview,
				correct,
				difficulty,
			))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Next review %s.\n", time.Unix(plan.NextReview, 0).Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().BoolVar(&correct, "correct", false, "The answer was correct")
	cmd.Flags().IntVar(&difficulty, "difficulty", 5, fmt.Sprintf("Perceived difficulty from %d to %d", schedule.MinDifficulty, schedule.MaxDifficulty))
	return cmd
}

func newReviewsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reviews",
		Short: "List every review with its schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reviews, err := a.reviewEngine().Overview(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REVIEW\tNOTE\tQUESTION\tLAST REVIEW\tNEXT REVIEW")
			for _, r := range reviews {
				next := r.NextReview
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.NoteName, oneLine(r.Question), formatUnix(r.LastReview), formatUnix(&next))
			}
			return tw.Flush()
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every note, card, review and score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			if err := a.db.Clear(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("Database cleared", "path", a.cfg.DB)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}

func formatUnix(ts *int64) string {
	if ts == nil {
		return "never"
	}
	return time.Unix(*ts, 0).Format(time.DateTime)
}
