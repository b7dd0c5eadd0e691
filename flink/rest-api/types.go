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
	"encoding/json"
	"strconv"
	"time"
)

// JobStatus represents the state of a Flink job
type JobStatus string

const (
	JobStatusCreated     JobStatus = "CREATED"
	JobStatusRunning     JobStatus = "RUNNING"
	JobStatusFailing     JobStatus = "FAILING"
	JobStatusFailed      JobStatus = "FAILED"
	JobStatusCanceling   JobStatus = "CANCELING"
	JobStatusCanceled    JobStatus = "CANCELED"
	JobStatusFinished    JobStatus = "FINISHED"
	JobStatusRestarting  JobStatus = "RESTARTING"
	JobStatusSuspended   JobStatus = "SUSPENDED"
	JobStatusReconciling JobStatus = "RECONCILING"
)

// JarRecord is one entry of the uploaded jars listing
type JarRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Uploaded in milliseconds since epoch, 0 when unknown
	Uploaded     int64    `json:"uploaded,omitempty"`
	EntryClasses []string `json:"entryClasses"`
}

// jarsListResponse is the /jars payload. Files are decoded one by one so a
// single malformed entry does not hide the rest.
type jarsListResponse struct {
	Address string            `json:"address"`
	Files   []json.RawMessage `json:"files"`
}

type jarFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Uploaded int64  `json:"uploaded"`
	Entry    []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"entry"`
}

type jarUploadResponse struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// RunRequest overrides the defaults RunJar submits with. Zero values keep the default.
type RunRequest struct {
	// EntryClass skips the entry class lookup when set
	EntryClass string `json:"entryClass,omitempty"`
	// Parallelism defaults to DefaultParallelism
	Parallelism int `json:"parallelism,omitempty"`
	// SavepointPath defaults to the client's WithSavepointPath value
	SavepointPath string `json:"savepointPath,omitempty"`
	// AllowNonRestoredState allows job to start even if savepoint has extra state
	AllowNonRestoredState bool   `json:"allowNonRestoredState,omitempty"`
	ProgramArgs           string `json:"programArgs,omitempty"`
}

// JobSummary is the record the server returns for one job. Its shape
// depends on the endpoint and Flink version, so it is kept as-is.
type JobSummary map[string]interface{}

// ID returns the job id ("jid")
func (j JobSummary) ID() string { return j.String("jid") }

// Name returns the job name
func (j JobSummary) Name() string { return j.String("name") }

// State returns the job state
func (j JobSummary) State() JobStatus { return JobStatus(j.String("state")) }

// StartTime returns the job start time, zero when absent
func (j JobSummary) StartTime() time.Time {
	ms, ok := j.Int64("start-time")
	if !ok || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// String returns the string value at key, or "" if absent or not a string
func (j JobSummary) String(key string) string {
	s, _ := j[key].(string)
	return s
}

// Int64 returns the integer value at key
func (j JobSummary) Int64(key string) (int64, bool) {
	return toInt64(j[key])
}

// TaskManagerInfo describes one worker node
type TaskManagerInfo map[string]interface{}

// ID returns the task manager id
func (t TaskManagerInfo) ID() string {
	s, _ := t["id"].(string)
	return s
}

// Slots returns the total and free slot counts
func (t TaskManagerInfo) Slots() (total, free int64) {
	total, _ = toInt64(t["slotsNumber"])
	free, _ = toInt64(t["freeSlots"])
	return total, free
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// ClusterOverview represents the Flink cluster overview
type ClusterOverview struct {
	TaskManagers   int    `json:"taskmanagers"`
	SlotsTotal     int    `json:"slots-total"`
	SlotsAvailable int    `json:"slots-available"`
	JobsRunning    int    `json:"jobs-running"`
	JobsFinished   int    `json:"jobs-finished"`
	JobsCancelled  int    `json:"jobs-cancelled"`
	JobsFailed     int    `json:"jobs-failed"`
	FlinkVersion   string `json:"flink-version"`
	FlinkCommit    string `json:"flink-commit"`
}

// ConfigEntry represents a configuration entry
type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SavepointStatus represents the status of a savepoint operation
type SavepointStatus struct {
	Status struct {
		// ID is IN_PROGRESS or COMPLETED
		ID string `json:"id"`
	} `json:"status"`
	Operation struct {
		// Location is the path to the completed savepoint
		Location     string `json:"location,omitempty"`
		FailureCause *struct {
			Class      string `json:"class"`
			StackTrace string `json:"stack-trace"`
		} `json:"failure-cause,omitempty"`
	} `json:"operation"`
}

// Completed reports whether the savepoint operation has finished, successfully or not
func (s *SavepointStatus) Completed() bool {
	return s.Status.ID == "COMPLETED"
}

// ExceptionEntry is a single exception in a job's exception history
type ExceptionEntry struct {
	ExceptionName        string            `json:"exceptionName"`
	Stacktrace           string            `json:"stacktrace"`
	Timestamp            int64             `json:"timestamp"`
	TaskName             string            `json:"taskName"`
	Endpoint             string            `json:"endpoint"`
	TaskManagerID        string            `json:"taskManagerId"`
	FailureLabels        map[string]string `json:"failureLabels,omitempty"`
	ConcurrentExceptions []ExceptionEntry  `json:"concurrentExceptions,omitempty"`
}

// JobExceptions is the response from GET /jobs/:jobid/exceptions
type JobExceptions struct {
	ExceptionHistory struct {
		Entries   []ExceptionEntry `json:"entries"`
		Truncated bool             `json:"truncated"`
	} `json:"exceptionHistory"`
}

type metric struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}
