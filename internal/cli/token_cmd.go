package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-timetable-viewer/internal/models"
	"github.com/noah-isme/sma-timetable-viewer/internal/service"
)

func newTokenCmd(app *App) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Config.Auth.Secret == "" {
				return errors.New("JWT_SECRET is not configured")
			}
			parsed := models.UserRole(strings.ToUpper(role))
			switch parsed {
			case models.RoleAdmin, models.RoleScheduler, models.RoleViewer:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			token, expires, err := service.NewTokenService(app.Config.Auth.Secret).IssueToken(userID, parsed, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Subject of the token")
	cmd.Flags().StringVar(&role, "role", string(models.RoleScheduler), "ADMIN, SCHEDULER or VIEWER")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
