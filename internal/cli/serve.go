package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve edit requests over stdin/stdout",
	Long: `Serve reads one JSON request per line from stdin and writes one JSON
response per line to stdout, until stdin closes. Intended to sit behind a
tool-invocation transport.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.log.Info("serving", "config", cfgPath)
	return app.srv.Run(ctx, os.Stdin, os.Stdout)
}
