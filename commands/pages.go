package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-xpdf-session/internal/application"
	"github.com/penwyp/go-xpdf-session/internal/pagestore"
	"github.com/penwyp/go-xpdf-session/internal/util"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var pagesOutput string

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Inspect or edit the remembered page numbers",
}

var pagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered documents, most recently viewed first",
	Args:  cobra.NoArgs,
	RunE:  runPagesList,
}

var pagesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every remembered page",
	Args:  cobra.NoArgs,
	RunE:  runPagesClear,
}

var pagesForgetCmd = &cobra.Command{
	Use:   "forget <PDF-file>...",
	Short: "Forget the remembered page of the given documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPagesForget,
}

func init() {
	rootCmd.AddCommand(pagesCmd)
	pagesCmd.AddCommand(pagesListCmd, pagesClearCmd, pagesForgetCmd)

	pagesListCmd.Flags().StringVarP(&pagesOutput, "output", "o", "table",
		"Output format (table, json)")
}

func runPagesList(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer util.SetLogger(nil)

	records := application.NewPageCache(cfg).Entries()
	out := cmd.OutOrStdout()

	switch pagesOutput {
	case "json":
		return writePagesJSON(out, records)
	case "table":
		writePagesTable(out, records, outputWidth())
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", pagesOutput)
	}
}

func runPagesClear(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer util.SetLogger(nil)

	cache := application.NewPageCache(cfg)
	n := len(cache.Entries())
	cache.Clear()
	if err := cache.FlushIfDirty(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Forgot %d documents\n", n)
	return nil
}

func runPagesForget(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer util.SetLogger(nil)

	cache := application.NewPageCache(cfg)
	for _, path := range args {
		if !cache.Forget(path) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: no remembered page\n", path)
		}
	}
	return cache.FlushIfDirty()
}

func writePagesJSON(w io.Writer, records []pagestore.Record) error {
	if records == nil {
		records = []pagestore.Record{}
	}
	data, err := sonic.ConfigStd.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

const pageColumnWidth = 6

func writePagesTable(w io.Writer, records []pagestore.Record, width int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No remembered pages")
		return
	}
	pathWidth := width - pageColumnWidth - 2
	fmt.Fprintf(w, "%s  %s\n", util.PadString("PAGE", pageColumnWidth, false), "DOCUMENT")
	for _, r := range records {
		fmt.Fprintf(w, "%s  %s\n",
			util.PadString(fmt.Sprint(r.Page), pageColumnWidth, false),
			util.TruncateLeft(r.Path, pathWidth))
	}
}

// outputWidth returns the terminal width, or 80 when stdout is not a terminal.
func outputWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	return width
}
