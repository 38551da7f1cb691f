package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

var applyCmd = &cobra.Command{
	Use:   "apply [request-file]",
	Short: "Apply one edit request and exit",
	Long: `Apply reads a JSON edit request from the given file ('-' or no argument
reads stdin), applies it transactionally, and prints the result.

The request shape matches the serve protocol:

  {"files":[{"path":"/abs/file","edits":[{"search":"old","replace":"new"}]}]}`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw JSON response")
}

func runApply(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	data, err := readRequest(args)
	if err != nil {
		return err
	}

	resp := app.srv.Handle(cmd.Context(), data)

	if jsonOutput {
		fmt.Fprintln(cmd.OutOrStdout(), string(resp))
		if !gjson.GetBytes(resp, "ok").Bool() {
			return fmt.Errorf("request failed")
		}
		return nil
	}

	return printSummary(cmd.OutOrStdout(), resp)
}

// readRequest loads the request document from the argument or stdin.
func readRequest(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading request from stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}
	return data, nil
}

// printSummary renders a human-readable result from the response line.
func printSummary(w io.Writer, resp []byte) error {
	doc := gjson.ParseBytes(resp)

	if doc.Get("ok").Bool() {
		okColor.Fprintln(w, "committed")
		for _, f := range doc.Get("files").Array() {
			line := fmt.Sprintf("  %s: %d edit(s)", f.Get("path").String(), f.Get("edits_applied").Int())
			if f.Get("dry_run").Bool() {
				line += " (dry run)"
			}
			fmt.Fprintln(w, line)
			if bp := f.Get("backup_path").String(); bp != "" {
				dimColor.Fprintf(w, "    backup: %s\n", bp)
			}
		}
		return nil
	}

	e := doc.Get("error")
	failColor.Fprintf(w, "failed: %s\n", e.Get("code").String())
	fmt.Fprintf(w, "  %s\n", e.Get("message").String())
	if e.Get("retryable").Bool() {
		fmt.Fprintln(w, "  retryable: correct the request and try again")
	}
	for _, h := range e.Get("hints").Array() {
		dimColor.Fprintf(w, "  hint: %s\n", h.String())
	}
	for _, f := range doc.Get("files").Array() {
		fmt.Fprintf(w, "  %s: %s\n", f.Get("path").String(), f.Get("status").String())
	}

	return fmt.Errorf("request failed")
}
