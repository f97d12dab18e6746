package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
)

type submitFiles struct {
	problem     string
	rooms       string
	teachers    string
	lunchGroups string
	lessons     string
	classCount  int
}

func newSubmitCmd(app *App) *cobra.Command {
	var (
		files submitFiles
		wait  bool
		opts  presentOptions
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a timetable problem from a JSON file or four CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if wait {
				if err := opts.validate(); err != nil {
					return err
				}
			}
			sess, err := app.open()
			if err != nil {
				return err
			}
			defer sess.svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var resp *dto.JobSubmissionResponse
			if files.problem != "" {
				problem, err := os.ReadFile(files.problem)
				if err != nil {
					return fmt.Errorf("reading problem: %w", err)
				}
				resp, err = sess.svc.Submit(ctx, problem, nil)
				if err != nil {
					return err
				}
			} else {
				upload, err := files.upload()
				if err != nil {
					return err
				}
				resp, err = sess.svc.SubmitCSV(ctx, upload, nil)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Submitted job %s\n", resp.JobID)
			if !wait {
				sess.svc.CancelPoll()
				return nil
			}
			status, err := sess.wait(ctx, resp.Poll, opts.timeout)
			if err != nil {
				return err
			}
			return sess.present(out, status, opts)
		},
	}

	cmd.Flags().StringVar(&files.problem, "problem", "", "JSON problem document")
	cmd.Flags().StringVar(&files.rooms, "rooms", "", "Rooms CSV")
	cmd.Flags().StringVar(&files.teachers, "teachers", "", "Teachers CSV")
	cmd.Flags().StringVar(&files.lunchGroups, "lunch-groups", "", "Lunch groups CSV")
	cmd.Flags().StringVar(&files.lessons, "lessons", "", "Lessons CSV")
	cmd.Flags().IntVar(&files.classCount, "class-count", 0, "Number of classes in the CSV inputs")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the solution and print it")
	cmd.MarkFlagsMutuallyExclusive("problem", "rooms")
	cmd.MarkFlagsMutuallyExclusive("problem", "lessons")
	opts.bind(cmd)
	return cmd
}

func (f submitFiles) upload() (dto.CSVUpload, error) {
	if f.rooms == "" && f.teachers == "" && f.lunchGroups == "" && f.lessons == "" {
		return dto.CSVUpload{}, errors.New("either --problem or the four CSV flags are required")
	}
	upload := dto.CSVUpload{ClassCount: f.classCount}
	for _, part := range []struct {
		flag string
		path string
		dest *dto.CSVFile
	}{
		{"--rooms", f.rooms, &upload.Rooms},
		{"--teachers", f.teachers, &upload.Teachers},
		{"--lunch-groups", f.lunchGroups, &upload.LunchGroups},
		{"--lessons", f.lessons, &upload.Lessons},
	} {
		if part.path == "" {
			return dto.CSVUpload{}, fmt.Errorf("%s is required", part.flag)
		}
		content, err := os.ReadFile(part.path)
		if err != nil {
			return dto.CSVUpload{}, fmt.Errorf("reading %s: %w", part.flag, err)
		}
		*part.dest = dto.CSVFile{Filename: filepath.Base(part.path), Content: content}
	}
	return upload, nil
}
