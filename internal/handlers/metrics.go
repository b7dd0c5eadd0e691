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
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	restapi "github.com/oakproject-flink/flinkctl/flink/rest-api"
)

type metricsFrame struct {
	Timestamp int64              `json:"timestamp"`
	JobID     string             `json:"jobId"`
	Metrics   map[string]float64 `json:"metrics"`
}

// MetricsStream sends job metrics via Server-Sent Events until the client
// disconnects. ?get=a,b selects metrics, ?interval=5s overrides the period.
func (a *API) MetricsStream(c echo.Context) error {
	jobID := c.Param("id")
	names := restapi.DefaultJobMetrics
	if raw := c.QueryParam("get"); raw != "" {
		names = splitNames(raw)
	}

	interval := a.metricsInterval
	if raw := c.QueryParam("interval"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "interval must be a positive duration")
		}
		interval = d
	}

	ctx := c.Request().Context()

	// First fetch happens before the headers so an unknown job still gets a 404
	metrics, err := a.jobs.JobMetrics(ctx, jobID, names...)
	if err != nil {
		return a.fail(c, err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeFrame(res, "", metricsFrame{Timestamp: time.Now().Unix(), JobID: jobID, Metrics: metrics}); err != nil {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics, err := a.jobs.JobMetrics(ctx, jobID, names...)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.log.Warnf("Metrics stream for job %s stopped: %v", jobID, err)
				writeFrame(res, "error", map[string]string{"message": err.Error()})
				return nil
			}
			if err := writeFrame(res, "", metricsFrame{Timestamp: time.Now().Unix(), JobID: jobID, Metrics: metrics}); err != nil {
				return nil
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func writeFrame(res *echo.Response, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if event != "" {
		if _, err := fmt.Fprintf(res, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(res, "data: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}

func splitNames(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
