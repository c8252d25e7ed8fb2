package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/eyelife/internal/models"
	"github.com/joescharf/eyelife/internal/output"
)

var (
	noteDate    string
	noteContent string
	noteFrom    string
	noteTo      string
)

var noteCmd = &cobra.Command{
	Use:   "note",
	Short: "Keep daily notes",
	Long:  "Add and browse dated notes. Running bare 'eyelife note' lists today's notes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return noteListRun()
	},
}

var noteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notes for a day (default today)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return noteListRun()
	},
}

var noteAddCmd = &cobra.Command{
	Use:   "add <text>...",
	Short: "Add a note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return noteAddRun(strings.Join(args, " "))
	},
}

var noteEditCmd = &cobra.Command{
	Use:   "edit <note-id>",
	Short: "Change a note's text or date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return noteEditRun(cmd, args[0])
	},
}

var noteDeleteCmd = &cobra.Command{
	Use:   "delete <note-id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return noteDeleteRun(args[0])
	},
}

var noteHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show notes grouped by date",
	RunE: func(cmd *cobra.Command, args []string) error {
		return noteHistoryRun()
	},
}

func init() {
	noteListCmd.Flags().StringVar(&noteDate, "date", "", "Day to list (YYYY-MM-DD)")
	noteAddCmd.Flags().StringVar(&noteDate, "date", "", "Day of the note (default today)")
	noteEditCmd.Flags().StringVar(&noteContent, "text", "", "New text")
	noteEditCmd.Flags().StringVar(&noteDate, "date", "", "New date (YYYY-MM-DD)")
	noteHistoryCmd.Flags().StringVar(&noteFrom, "from", "", "First date (YYYY-MM-DD)")
	noteHistoryCmd.Flags().StringVar(&noteTo, "to", "", "Last date (YYYY-MM-DD)")

	noteCmd.AddCommand(noteListCmd)
	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteEditCmd)
	noteCmd.AddCommand(noteDeleteCmd)
	noteCmd.AddCommand(noteHistoryCmd)
	rootCmd.AddCommand(noteCmd)
}

func validDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(models.DateLayout, s); err != nil {
		return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return nil
}

func parseNoteID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid note id: %s", s)
	}
	return id, nil
}

func printNotes(list []models.Note) {
	table := ui.Table([]string{"ID", "Date", "Note"})
	for _, n := range list {
		_ = table.Append([]string{strconv.FormatInt(n.ID, 10), n.Date, n.Content})
	}
	_ = table.Render()
}

func noteListRun() error {
	if err := validDate(noteDate); err != nil {
		return err
	}
	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()

	out := a.Notes.FetchToday(ctx)
	if noteDate != "" {
		out = a.Notes.FetchByDate(ctx, noteDate)
	}
	if !out.OK() {
		return fmt.Errorf("list notes: %w", out.Err)
	}

	list := a.Notes.Snapshot()
	if len(list) == 0 {
		ui.Info("No notes.")
		return nil
	}
	printNotes(list)
	return nil
}

func noteAddRun(text string) error {
	if err := validDate(noteDate); err != nil {
		return err
	}
	date := noteDate
	if date == "" {
		date = models.FormatDate(time.Now())
	}

	if dryRun {
		ui.DryRunMsg("Would add note on %s: %s", date, text)
		return nil
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	n, err := a.Notes.Create(context.Background(), models.NoteCreate{Content: text, Date: date})
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	ui.Success("Added note %s on %s", output.Cyan(strconv.FormatInt(n.ID, 10)), n.Date)
	return nil
}

func noteEditRun(cmd *cobra.Command, ref string) error {
	id, err := parseNoteID(ref)
	if err != nil {
		return err
	}
	if err := validDate(noteDate); err != nil {
		return err
	}

	var patch models.NoteUpdate
	if cmd.Flags().Changed("text") {
		patch.Content = &noteContent
	}
	if noteDate != "" {
		patch.Date = &noteDate
	}
	if patch.Content == nil && patch.Date == nil {
		return fmt.Errorf("no updates specified (use --text or --date)")
	}

	if dryRun {
		ui.DryRunMsg("Would update note %d", id)
		return nil
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	n, err := a.Notes.UpdateNote(context.Background(), id, patch)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	ui.Success("Updated note %s", output.Cyan(strconv.FormatInt(n.ID, 10)))
	return nil
}

func noteDeleteRun(ref string) error {
	id, err := parseNoteID(ref)
	if err != nil {
		return err
	}
	if dryRun {
		ui.DryRunMsg("Would delete note %d", id)
		return nil
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	if out := a.Notes.Delete(context.Background(), id); !out.OK() {
		return fmt.Errorf("delete note: %w", out.Err)
	}
	ui.Success("Deleted note %s", output.Cyan(strconv.FormatInt(id, 10)))
	return nil
}

func noteHistoryRun() error {
	if err := validDate(noteFrom); err != nil {
		return err
	}
	if err := validDate(noteTo); err != nil {
		return err
	}
	a, err := getEngine()
	if err != nil {
		return err
	}

	if out := a.NotesByDate.Fetch(context.Background(), noteFrom, noteTo); !out.OK() {
		return fmt.Errorf("note history: %w", out.Err)
	}
	groups := a.NotesByDate.Groups().Get()
	if len(groups) == 0 {
		ui.Info("No notes.")
		return nil
	}

	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(ui.Out)
		}
		fmt.Fprintf(ui.Out, "%s  (%d)\n", output.Cyan(g.Date), len(g.Notes))
		for _, n := range g.Notes {
			fmt.Fprintf(ui.Out, "  %-6d %s\n", n.ID, n.Content)
		}
	}
	return nil
}
