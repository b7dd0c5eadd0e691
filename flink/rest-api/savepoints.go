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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type savepointTriggerRequest struct {
	TargetDirectory string `json:"target-directory,omitempty"`
	CancelJob       bool   `json:"cancel-job"`
}

// TriggerSavepoint starts an asynchronous savepoint and returns the trigger id
// to poll with SavepointStatus. With cancelJob the job is cancelled once the
// savepoint completes.
// Endpoint: POST /jobs/:jobid/savepoints
func (c *Client) TriggerSavepoint(ctx context.Context, jobID, targetDirectory string, cancelJob bool) (string, error) {
	body, err := json.Marshal(savepointTriggerRequest{
		TargetDirectory: targetDirectory,
		CancelJob:       cancelJob,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal savepoint request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/jobs/"+escape(jobID)+"/savepoints", bytes.NewReader(body), "application/json")
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return "", &NotFoundError{Kind: "job", ID: jobID}
		}
		return "", fmt.Errorf("failed to trigger savepoint for job %s: %w", jobID, err)
	}

	var triggerResp struct {
		RequestID string `json:"request-id"`
	}
	if err := unmarshalResponse(resp, &triggerResp); err != nil {
		return "", err
	}
	if triggerResp.RequestID == "" {
		return "", fmt.Errorf("savepoint trigger for job %s returned no request id", jobID)
	}

	return triggerResp.RequestID, nil
}

// SavepointStatus retrieves the status of a savepoint operation
// Endpoint: GET /jobs/:jobid/savepoints/:triggerid
func (c *Client) SavepointStatus(ctx context.Context, jobID, triggerID string) (*SavepointStatus, error) {
	path := fmt.Sprintf("/jobs/%s/savepoints/%s", escape(jobID), escape(triggerID))

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get savepoint status for job %s, trigger %s: %w", jobID, triggerID, err)
	}

	var status SavepointStatus
	if err := unmarshalResponse(resp, &status); err != nil {
		return nil, err
	}

	return &status, nil
}
