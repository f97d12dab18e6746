package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-timetable-viewer/internal/cli/formatter"
	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
)

const formatTable = "table"

// presentOptions controls how a loaded solution is printed.
type presentOptions struct {
	class       string
	format      string
	output      string
	diagnostics bool
	timeout     time.Duration
}

func (o *presentOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.class, "class", "", "Show or export the grid of this class")
	cmd.Flags().StringVar(&o.format, "format", formatTable, "Grid output: table, csv or pdf")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "File to write csv/pdf exports to")
	cmd.Flags().BoolVar(&o.diagnostics, "diagnostics", true, "Print constraint diagnostics")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 2*time.Minute, "Give up waiting for the solution after this long")
}

func (o *presentOptions) validate() error {
	switch o.format {
	case formatTable, "csv", "pdf":
	default:
		return fmt.Errorf("unknown format %q (want table, csv or pdf)", o.format)
	}
	if o.format != formatTable && o.class == "" {
		return errors.New("--class is required for csv and pdf exports")
	}
	return nil
}

// session is a connected Timetable plus the channel its poller settles on.
type session struct {
	svc     Timetable
	settled chan dto.PollStatus
}

func (a *App) open() (*session, error) {
	settled := make(chan dto.PollStatus, 1)
	svc, err := a.Connect(a.Config, a.log(), func(status dto.PollStatus) {
		select {
		case settled <- status:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	return &session{svc: svc, settled: settled}, nil
}

// wait blocks until polling reaches a terminal state.
func (s *session) wait(ctx context.Context, started dto.PollStatus, timeout time.Duration) (dto.PollStatus, error) {
	if started.State.Terminal() {
		return started, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case status := <-s.settled:
			if status.JobID != started.JobID {
				continue
			}
			return status, nil
		case <-timer.C:
			s.svc.CancelPoll()
			return dto.PollStatus{}, fmt.Errorf("timed out after %s waiting for job %s", timeout, started.JobID)
		case <-ctx.Done():
			s.svc.CancelPoll()
			return dto.PollStatus{}, ctx.Err()
		}
	}
}

// present prints the solution selected by opts once status is terminal.
func (s *session) present(out io.Writer, status dto.PollStatus, opts presentOptions) error {
	if status.State != dto.PollStateReady {
		return errors.New(status.Message)
	}

	summary, err := s.svc.Summary()
	if err != nil {
		return err
	}
	fmt.Fprint(out, formatter.FormatSummary(summary))

	if opts.diagnostics && !summary.Empty {
		if diagnostics, err := s.svc.Diagnostics(); err == nil {
			if text := formatter.FormatDiagnostics(diagnostics); text != "" {
				fmt.Fprintln(out)
				fmt.Fprint(out, text)
			}
		}
	}

	if opts.class == "" {
		return nil
	}
	if opts.format == formatTable {
		grid, err := s.svc.Grid(opts.class)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		fmt.Fprint(out, formatter.FormatGrid(grid))
		return nil
	}

	result, err := s.svc.Export(opts.class, dto.ExportQuery{Format: opts.format})
	if err != nil {
		return err
	}
	path := opts.output
	if path == "" {
		path = result.Filename
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	fmt.Fprintf(out, "\nWrote %s\n", path)
	return nil
}
