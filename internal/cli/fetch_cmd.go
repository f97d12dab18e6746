package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
)

func newFetchCmd(app *App) *cobra.Command {
	var opts presentOptions

	cmd := &cobra.Command{
		Use:   "fetch JOB_ID",
		Short: "Load a job's solution, waiting while it is still being solved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			sess, err := app.open()
			if err != nil {
				return err
			}
			defer sess.svc.Close()

			resp, err := sess.svc.Fetch(dto.FetchSolutionRequest{JobID: args[0]})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			status, err := sess.wait(ctx, resp.Poll, opts.timeout)
			if err != nil {
				return err
			}
			return sess.present(cmd.OutOrStdout(), status, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}
