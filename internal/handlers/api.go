// Copyright 2025 Andrei Grigoriu
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package handlers

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	restapi "github.com/oakproject-flink/flinkctl/flink/rest-api"
	"github.com/oakproject-flink/flinkctl/logger"
)

// JobControl is the subset of the Flink client the gateway drives.
// *restapi.Client satisfies it.
type JobControl interface {
	ListJars(ctx context.Context) ([]restapi.JarRecord, error)
	UploadJar(ctx context.Context, jarPath string) (string, error)
	DeleteJar(ctx context.Context, jarID string) error
	RunJar(ctx context.Context, jarID string, req restapi.RunRequest) (string, error)

	ListJobs(ctx context.Context) (map[string]restapi.JobSummary, error)
	ListRunningJobs(ctx context.Context) (map[string]restapi.JobSummary, error)
	JobDetail(ctx context.Context, jobID string) (restapi.JobSummary, error)
	CancelJob(ctx context.Context, jobID string) bool
	JobExceptions(ctx context.Context, jobID string) (*restapi.JobExceptions, error)
	JobMetrics(ctx context.Context, jobID string, metricNames ...string) (map[string]float64, error)

	TriggerSavepoint(ctx context.Context, jobID, targetDirectory string, cancelJob bool) (string, error)
	SavepointStatus(ctx context.Context, jobID, triggerID string) (*restapi.SavepointStatus, error)

	ClusterOverview(ctx context.Context) (*restapi.ClusterOverview, error)
	TaskManagers(ctx context.Context) ([]restapi.TaskManagerInfo, error)
}

var _ JobControl = (*restapi.Client)(nil)

// DefaultMetricsInterval is the SSE refresh period of /api/jobs/:id/metrics/stream
const DefaultMetricsInterval = 2 * time.Second

// API serves the job-control routes
type API struct {
	jobs            JobControl
	log             *logger.Logger
	metricsInterval time.Duration
	uploadDir       string
}

// APIOption configures an API
type APIOption func(*API)

// WithMetricsInterval sets the metrics stream refresh period
func WithMetricsInterval(d time.Duration) APIOption {
	return func(a *API) {
		if d > 0 {
			a.metricsInterval = d
		}
	}
}

// WithUploadDir sets where uploaded jars are staged before forwarding (default: os.TempDir())
func WithUploadDir(dir string) APIOption {
	return func(a *API) {
		a.uploadDir = dir
	}
}

// NewAPI creates the route handlers
func NewAPI(jobs JobControl, log *logger.Logger, opts ...APIOption) *API {
	a := &API{
		jobs:            jobs,
		log:             log,
		metricsInterval: DefaultMetricsInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register mounts every route on e
func (a *API) Register(e *echo.Echo) {
	e.GET("/health", a.Health)

	api := e.Group("/api")
	api.GET("/overview", a.Overview)
	api.GET("/taskmanagers", a.TaskManagers)

	api.GET("/jars", a.ListJars)
	api.POST("/jars", a.UploadJar)
	api.DELETE("/jars/:id", a.DeleteJar)
	api.POST("/jars/:id/run", a.RunJar)

	api.GET("/jobs", a.ListJobs)
	api.GET("/jobs/:id", a.JobDetail)
	api.POST("/jobs/:id/cancel", a.CancelJob)
	api.GET("/jobs/:id/exceptions", a.JobExceptions)
	api.POST("/jobs/:id/savepoints", a.TriggerSavepoint)
	api.GET("/jobs/:id/savepoints/:trigger", a.SavepointStatus)
	api.GET("/jobs/:id/metrics/stream", a.MetricsStream)
}

// Health reports the gateway itself is up
func (a *API) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "flinkctl",
	})
}

// Overview returns the cluster overview
func (a *API) Overview(c echo.Context) error {
	overview, err := a.jobs.ClusterOverview(c.Request().Context())
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, overview)
}

// TaskManagers returns the registered task managers
func (a *API) TaskManagers(c echo.Context) error {
	tms, err := a.jobs.TaskManagers(c.Request().Context())
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, tms)
}

// ListJars returns the uploaded jars
func (a *API) ListJars(c echo.Context) error {
	jars, err := a.jobs.ListJars(c.Request().Context())
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, jars)
}

// UploadJar stages the multipart "jarfile" part on disk and forwards it
func (a *API) UploadJar(c echo.Context) error {
	file, err := c.FormFile("jarfile")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing multipart field jarfile")
	}

	name := filepath.Base(file.Filename)
	if name == "." || name == string(filepath.Separator) || !strings.HasSuffix(strings.ToLower(name), ".jar") {
		return echo.NewHTTPError(http.StatusBadRequest, "jarfile must be a .jar file")
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read jarfile")
	}
	defer src.Close()

	dir, err := os.MkdirTemp(a.uploadDir, "flinkctl-upload-*")
	if err != nil {
		return a.fail(c, err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return a.fail(c, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return a.fail(c, err)
	}
	if err := dst.Close(); err != nil {
		return a.fail(c, err)
	}

	jarID, err := a.jobs.UploadJar(c.Request().Context(), path)
	if err != nil {
		return a.fail(c, err)
	}

	a.log.Infof("Uploaded jar %s as %s", name, jarID)
	return c.JSON(http.StatusCreated, map[string]string{"id": jarID})
}

// DeleteJar removes an uploaded jar
func (a *API) DeleteJar(c echo.Context) error {
	jarID := c.Param("id")
	if err := a.jobs.DeleteJar(c.Request().Context(), jarID); err != nil {
		return a.fail(c, err)
	}

	a.log.Infof("Deleted jar %s", jarID)
	return c.NoContent(http.StatusNoContent)
}

// RunJar submits a job from an uploaded jar. The body is an optional JSON RunRequest.
func (a *API) RunJar(c echo.Context) error {
	var req restapi.RunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid run request")
	}

	jarID := c.Param("id")
	jobID, err := a.jobs.RunJar(c.Request().Context(), jarID, req)
	if err != nil {
		return a.fail(c, err)
	}

	a.log.Infof("Started job %s from jar %s", jobID, jarID)
	return c.JSON(http.StatusOK, map[string]string{"jobId": jobID})
}

// ListJobs returns every job keyed by id. ?state=RUNNING narrows to running
// jobs; any other state filters the full listing.
func (a *API) ListJobs(c echo.Context) error {
	ctx := c.Request().Context()
	state := restapi.JobStatus(strings.ToUpper(c.QueryParam("state")))

	var (
		jobs map[string]restapi.JobSummary
		err  error
	)
	if state == restapi.JobStatusRunning {
		jobs, err = a.jobs.ListRunningJobs(ctx)
	} else {
		jobs, err = a.jobs.ListJobs(ctx)
	}
	if err != nil {
		return a.fail(c, err)
	}

	if state != "" && state != restapi.JobStatusRunning {
		for id, job := range jobs {
			if job.State() != state {
				delete(jobs, id)
			}
		}
	}

	return c.JSON(http.StatusOK, jobs)
}

// JobDetail returns the full record of one job
func (a *API) JobDetail(c echo.Context) error {
	job, err := a.jobs.JobDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

// CancelJob requests cancellation. The client swallows failures, so the
// response only reports whether the request was accepted.
func (a *API) CancelJob(c echo.Context) error {
	jobID := c.Param("id")
	cancelled := a.jobs.CancelJob(c.Request().Context(), jobID)
	if cancelled {
		a.log.Infof("Cancelled job %s", jobID)
	}
	return c.JSON(http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// JobExceptions returns the exception history of a job
func (a *API) JobExceptions(c echo.Context) error {
	exceptions, err := a.jobs.JobExceptions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, exceptions)
}

type savepointRequest struct {
	Target string `json:"target"`
	Cancel bool   `json:"cancel"`
}

// TriggerSavepoint starts an asynchronous savepoint
func (a *API) TriggerSavepoint(c echo.Context) error {
	var req savepointRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid savepoint request")
	}

	jobID := c.Param("id")
	triggerID, err := a.jobs.TriggerSavepoint(c.Request().Context(), jobID, req.Target, req.Cancel)
	if err != nil {
		return a.fail(c, err)
	}

	a.log.Infof("Triggered savepoint %s for job %s", triggerID, jobID)
	return c.JSON(http.StatusAccepted, map[string]string{"requestId": triggerID})
}

// SavepointStatus polls a savepoint trigger
func (a *API) SavepointStatus(c echo.Context) error {
	status, err := a.jobs.SavepointStatus(c.Request().Context(), c.Param("id"), c.Param("trigger"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, status)
}
