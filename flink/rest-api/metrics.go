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

package restapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	MetricNumRestarts                  = "numRestarts"
	MetricUptime                       = "uptime"
	MetricDowntime                     = "downtime"
	MetricLastCheckpointDuration       = "lastCheckpointDuration"
	MetricLastCheckpointSize           = "lastCheckpointSize"
	MetricNumberOfFailedCheckpoints    = "numberOfFailedCheckpoints"
	MetricNumberOfCompletedCheckpoints = "numberOfCompletedCheckpoints"
)

// DefaultJobMetrics is the health snapshot requested when callers name no metrics
var DefaultJobMetrics = []string{
	MetricUptime,
	MetricDowntime,
	MetricNumRestarts,
	MetricLastCheckpointDuration,
	MetricLastCheckpointSize,
	MetricNumberOfCompletedCheckpoints,
	MetricNumberOfFailedCheckpoints,
}

// JobMetrics returns job-level metrics by name. Without names the server
// lists the available metric ids, which carry no values and yield an empty map.
// Values that are not numeric are skipped.
// Endpoint: GET /jobs/:jobid/metrics?get=a,b
func (c *Client) JobMetrics(ctx context.Context, jobID string, metricNames ...string) (map[string]float64, error) {
	path := "/jobs/" + escape(jobID) + "/metrics"
	if len(metricNames) > 0 {
		path += "?get=" + url.QueryEscape(strings.Join(metricNames, ","))
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, &NotFoundError{Kind: "job", ID: jobID}
		}
		return nil, fmt.Errorf("failed to get metrics for job %s: %w", jobID, err)
	}

	var metricResp []metric
	if err := unmarshalResponse(resp, &metricResp); err != nil {
		return nil, err
	}

	metrics := make(map[string]float64, len(metricResp))
	for _, m := range metricResp {
		if val, err := strconv.ParseFloat(m.Value, 64); err == nil {
			metrics[m.ID] = val
		}
	}

	return metrics, nil
}
