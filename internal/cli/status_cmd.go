package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show the solver status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.open()
			if err != nil {
				return err
			}
			defer sess.svc.Close()

			info, err := sess.svc.JobStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\t%s\n", info.JobID, info.Status)
			if info.Error != "" {
				fmt.Fprintln(out, info.Error)
			}
			return nil
		},
	}
}
