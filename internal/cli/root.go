package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
	"github.com/noah-isme/sma-timetable-viewer/internal/service"
	"github.com/noah-isme/sma-timetable-viewer/pkg/config"
	"github.com/noah-isme/sma-timetable-viewer/pkg/logger"
)

// Timetable is the part of the timetable service the CLI drives.
type Timetable interface {
	Submit(ctx context.Context, problem json.RawMessage, actor *models.JWTClaims) (*dto.JobSubmissionResponse, error)
	SubmitCSV(ctx context.Context, upload dto.CSVUpload, actor *models.JWTClaims) (*dto.JobSubmissionResponse, error)
	Fetch(req dto.FetchSolutionRequest) (*dto.JobSubmissionResponse, error)
	JobStatus(ctx context.Context, jobID string) (*models.JobInfo, error)
	Summary() (*dto.SolutionSummary, error)
	Diagnostics() (*dto.ConstraintDiagnostics, error)
	Grid(className string) (*dto.ClassGrid, error)
	Export(className string, query dto.ExportQuery) (*service.ExportResult, error)
	CancelPoll() dto.PollStatus
	Close()
}

// ConnectFunc builds a Timetable for cfg. onSettle must be forwarded to the
// poller so commands can wait for a terminal state.
type ConnectFunc func(cfg *config.Config, logger *zap.Logger, onSettle func(dto.PollStatus)) (Timetable, error)

// App holds what every command needs.
type App struct {
	Config  *config.Config
	Connect ConnectFunc

	logger *zap.Logger
}

// NewRootCmd creates the top-level command and registers all subcommands.
func NewRootCmd(app *App) *cobra.Command {
	var (
		solverURL  string
		retryDelay time.Duration
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "timetable",
		Short:         "Submit timetable problems and inspect their solutions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if solverURL != "" {
				app.Config.Solver.BaseURL = solverURL
			}
			if cmd.Flags().Changed("retry-delay") {
				app.Config.Poller.RetryDelay = retryDelay
			}
			log, err := logger.NewCLI(verbose)
			if err != nil {
				return err
			}
			app.logger = log
			return nil
		},
	}

	root.PersistentFlags().StringVar(&solverURL, "solver-url", "", "Solver base URL (overrides SOLVER_BASE_URL)")
	root.PersistentFlags().DurationVar(&retryDelay, "retry-delay", 500*time.Millisecond, "Delay between solution fetch retries")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newFetchCmd(app),
		newSubmitCmd(app),
		newStatusCmd(app),
		newTokenCmd(app),
	)
	return root
}

func (a *App) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}
