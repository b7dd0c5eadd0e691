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
	"encoding/json"
	"fmt"
	"net/http"
)

// ListJobs returns every job the cluster knows about, keyed by job id.
// Entries without a "jid" are dropped; an unreadable body yields an empty map.
// Endpoint: GET /jobs/overview
func (c *Client) ListJobs(ctx context.Context) (map[string]JobSummary, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/jobs/overview", nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make(map[string]JobSummary)

	var overview struct {
		Jobs []json.RawMessage `json:"jobs"`
	}
	if err := unmarshalResponse(resp, &overview); err != nil {
		c.debugf("treating unreadable job overview as empty: %v", err)
		return jobs, nil
	}

	for _, raw := range overview.Jobs {
		var job JobSummary
		if err := unmarshalJSON(raw, &job); err != nil {
			continue
		}
		if id := job.ID(); id != "" {
			jobs[id] = job
		}
	}

	return jobs, nil
}

// ListRunningJobs returns the jobs in state RUNNING, keyed by job id
func (c *Client) ListRunningJobs(ctx context.Context) (map[string]JobSummary, error) {
	jobs, err := c.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	for id, job := range jobs {
		if job.State() != JobStatusRunning {
			delete(jobs, id)
		}
	}
	return jobs, nil
}

// JobDetail returns details for a specific job
// Endpoint: GET /jobs/:jobid
func (c *Client) JobDetail(ctx context.Context, jobID string) (JobSummary, error) {
	path := "/jobs/" + escape(jobID)

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, &NotFoundError{Kind: "job", ID: jobID}
		}
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}

	var details JobSummary
	if err := unmarshalResponse(resp, &details); err != nil {
		return nil, &RequestError{Method: http.MethodGet, Path: path, Err: err}
	}
	if details == nil {
		return nil, &RequestError{Method: http.MethodGet, Path: path, Err: fmt.Errorf("empty job details")}
	}

	return details, nil
}

// CancelJob asks the cluster to cancel a job and reports whether the request
// was accepted. Failures are logged at WARN, never returned.
// Endpoint: GET /jobs/:jobid/yarn-cancel, PATCH /jobs/:jobid on Flink 2.0+
func (c *Client) CancelJob(ctx context.Context, jobID string) bool {
	if err := c.cancelJob(ctx, jobID); err != nil {
		c.warnf("failed to cancel job %s: %v", jobID, err)
		return false
	}
	return true
}

func (c *Client) cancelJob(ctx context.Context, jobID string) error {
	method, path := http.MethodGet, "/jobs/"+escape(jobID)+"/yarn-cancel"
	if c.version == Version2_0Plus {
		method, path = http.MethodPatch, "/jobs/"+escape(jobID)
	}

	resp, err := c.doRequest(ctx, method, path, nil, "")
	if err != nil {
		return err
	}
	discardResponse(resp)

	return nil
}

// JobExceptions returns the exception history of a job
// Endpoint: GET /jobs/:jobid/exceptions
func (c *Client) JobExceptions(ctx context.Context, jobID string) (*JobExceptions, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/jobs/"+escape(jobID)+"/exceptions", nil, "")
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, &NotFoundError{Kind: "job", ID: jobID}
		}
		return nil, fmt.Errorf("failed to get exceptions for job %s: %w", jobID, err)
	}

	var exceptions JobExceptions
	if err := unmarshalResponse(resp, &exceptions); err != nil {
		return nil, err
	}

	return &exceptions, nil
}
