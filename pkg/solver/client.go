package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-viewer/pkg/errors"
)

const maxBodyBytes = 32 << 20

// Config configures the solver client.
type Config struct {
	BaseURL            string
	Timeout            time.Duration
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
	HTTPClient         *http.Client
	Logger             *zap.Logger
	// OnBreakerChange is notified with the new breaker state name.
	OnBreakerChange func(state string)
}

// Client talks to the external timetable solving service.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*reply]
	logger  *zap.Logger
}

type reply struct {
	status int
	body   []byte
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error %d", e.status)
}

// NewClient builds a solver client with circuit breaking around every call.
// Not-found and not-ready answers are normal outcomes and never trip it, and
// neither does a request the caller cancelled.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	settings := gobreaker.Settings{
		Name:        "solver",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("solver circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if cfg.OnBreakerChange != nil {
				cfg.OnBreakerChange(to.String())
			}
		},
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		breaker: gobreaker.NewCircuitBreaker[*reply](settings),
		logger:  logger,
	}
}

// SubmitProblem posts a JSON timetable problem and returns the new job id.
func (c *Client) SubmitProblem(ctx context.Context, problem json.RawMessage) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/jobs", "application/json", bytes.NewReader(problem))
	if err != nil {
		return "", err
	}
	return decodeJobID(resp)
}

// SubmitCSV posts the four CSV inputs and the class count as a multipart form.
func (c *Client) SubmitCSV(ctx context.Context, upload dto.CSVUpload) (string, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	files := []struct {
		field string
		file  dto.CSVFile
	}{
		{"roomsCsv", upload.Rooms},
		{"teachersCsv", upload.Teachers},
		{"lunchGroupsCsv", upload.LunchGroups},
		{"lessonsCsv", upload.Lessons},
	}
	for _, f := range files {
		name := f.file.Filename
		if name == "" {
			name = f.field + ".csv"
		}
		part, err := form.CreateFormFile(f.field, name)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build upload form")
		}
		if _, err := part.Write(f.file.Content); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build upload form")
		}
	}
	if err := form.WriteField("classCount", strconv.Itoa(upload.ClassCount)); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build upload form")
	}
	if err := form.Close(); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build upload form")
	}

	resp, err := c.do(ctx, http.MethodPost, "/jobs/from-csv", form.FormDataContentType(), body)
	if err != nil {
		return "", err
	}
	return decodeJobID(resp)
}

// JobStatus returns the solver's lifecycle status for a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*models.JobInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), "", nil)
	if err != nil {
		return nil, err
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	var info models.JobInfo
	if err := json.Unmarshal(resp.body, &info); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "invalid job status payload")
	}
	if info.JobID == "" {
		info.JobID = jobID
	}
	return &info, nil
}

// FetchSolution loads a job's solution. It returns ErrJobNotFound on 404,
// ErrSolutionNotReady on 409 and ErrSolverUnavailable for anything else
// that is not a decodable 2xx answer.
func (c *Client) FetchSolution(ctx context.Context, jobID string) (*models.SolutionPayload, error) {
	resp, err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID)+"/solution", "", nil)
	if err != nil {
		return nil, err
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	var payload models.SolutionPayload
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "invalid solution payload")
	}
	return &payload, nil
}

// State exposes the breaker state name for readiness checks.
func (c *Client) State() string {
	return c.breaker.State().String()
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*reply, error) {
	resp, err := c.breaker.Execute(func() (*reply, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close() //nolint:errcheck
		data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		out := &reply{status: res.StatusCode, body: data}
		if res.StatusCode >= http.StatusInternalServerError {
			return out, &statusError{status: res.StatusCode}
		}
		return out, nil
	})
	if err != nil {
		var se *statusError
		switch {
		case errors.As(err, &se):
			return nil, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, se.Error())
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, http.StatusServiceUnavailable, "solver temporarily unavailable")
		default:
			c.logger.Warn("solver request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "solver request failed")
		}
	}
	return resp, nil
}

func classify(resp *reply) error {
	switch {
	case resp.status == http.StatusNotFound:
		return appErrors.ErrJobNotFound
	case resp.status == http.StatusConflict:
		return appErrors.ErrSolutionNotReady
	case resp.status < 200 || resp.status > 299:
		return appErrors.Wrap(&statusError{status: resp.status}, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, fmt.Sprintf("HTTP error %d", resp.status))
	}
	return nil
}

func decodeJobID(resp *reply) (string, error) {
	if err := classify(resp); err != nil {
		if errors.Is(err, appErrors.ErrJobNotFound) || errors.Is(err, appErrors.ErrSolutionNotReady) {
			return "", appErrors.Wrap(&statusError{status: resp.status}, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, fmt.Sprintf("HTTP error %d", resp.status))
		}
		return "", err
	}
	var out struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(resp.body, &out); err != nil || out.JobID == "" {
		return "", appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "solver did not return a job id")
	}
	return out.JobID, nil
}
