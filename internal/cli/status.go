package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thruflo/wreckit/internal/state"
	"github.com/thruflo/wreckit/internal/workflow"
)

var statusCmd = &cobra.Command{
	Use:   "status [id]",
	Short: "Show item status",
	Long: `Shows the state of wreckit items.

Without arguments, lists all items with their state, next phase and last
error. With an id, shows detailed information for that item.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, store, err := openStore()
	if err != nil {
		return err
	}
	store.SetLogger(newLogger(cmd, nil))

	if len(args) == 0 {
		return listItems(cmd.OutOrStdout(), store)
	}
	return showItem(cmd.OutOrStdout(), store, args[0])
}

func listItems(out io.Writer, store *state.Store) error {
	items, err := store.ListItems()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No items found.")
		return nil
	}

	idWidth := len("ID")
	stateWidth := len("STATE")
	nextWidth := len("NEXT")
	for _, item := range items {
		idWidth = max(idWidth, len(item.ID))
		stateWidth = max(stateWidth, len(item.State))
		nextWidth = max(nextWidth, len(nextPhase(item.State)))
	}

	fmt.Fprintf(out, "%-*s  %-*s  %-*s  %s\n", idWidth, "ID", stateWidth, "STATE", nextWidth, "NEXT", "ERROR")
	fmt.Fprintf(out, "%s  %s  %s  %s\n", strings.Repeat("-", idWidth), strings.Repeat("-", stateWidth), strings.Repeat("-", nextWidth), "-----")

	for _, item := range items {
		st := stateStyle(string(item.State)).Render(fmt.Sprintf("%-*s", stateWidth, item.State))
		errText := ""
		if item.LastError != nil {
			errText = failStyle.Render(truncate(*item.LastError, 60))
		}
		fmt.Fprintf(out, "%-*s  %s  %-*s  %s\n", idWidth, item.ID, st, nextWidth, nextPhase(item.State), errText)
	}
	return nil
}

func showItem(out io.Writer, store *state.Store, id string) error {
	item, err := store.GetItem(id)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, headerStyle.Render("Item Details"))
	fmt.Fprintln(out, "============")
	fmt.Fprintln(out)

	printField(out, "ID", item.ID)
	if item.Title != "" {
		printField(out, "Title", item.Title)
	}
	printField(out, "State", stateStyle(string(item.State)).Render(string(item.State)))
	printField(out, "Next", nextPhase(item.State))
	if len(item.DependsOn) > 0 {
		printField(out, "Depends On", strings.Join(item.DependsOn, ", "))
	}
	if item.Branch != nil {
		printField(out, "Branch", *item.Branch)
	}
	if item.PRURL != nil {
		printField(out, "PR", *item.PRURL)
	}
	if !item.CreatedAt.IsZero() {
		printField(out, "Created", formatTime(item.CreatedAt))
	}
	if !item.UpdatedAt.IsZero() {
		printField(out, "Updated", formatTime(item.UpdatedAt))
	}
	if item.LastError != nil {
		printField(out, "Last Error", failStyle.Render(*item.LastError))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Artifacts")
	fmt.Fprintln(out, "---------")
	for _, name := range []string{state.ResearchFileName, state.PlanFileName, state.PRDFileName} {
		mark := "missing"
		if store.HasArtifact(id, name) {
			mark = "present"
		}
		printField(out, name, mark)
	}

	prd, err := store.LoadPRD(id)
	if err != nil {
		printField(out, "Stories", warnStyle.Render("unreadable prd.json"))
		return nil
	}
	if prd != nil {
		done := 0
		for _, s := range prd.UserStories {
			if s.Status == state.StoryDone {
				done++
			}
		}
		printField(out, "Stories", fmt.Sprintf("%d/%d done", done, len(prd.UserStories)))
	}
	return nil
}

// nextPhase names the phase that would run next, or "-" for a done item.
func nextPhase(st state.ItemState) string {
	p, err := workflow.NextPhase(st)
	if err != nil || p == "" {
		return "-"
	}
	return p.String()
}

func printField(out io.Writer, label, value string) {
	fmt.Fprintf(out, "  %-14s %s\n", label+":", value)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
