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

package cli

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	restapi "github.com/oakproject-flink/flinkctl/flink/rest-api"
)

var jobColumns = []column[restapi.JobSummary]{
	{Name: "ID", Value: func(j restapi.JobSummary) string { return j.ID() }},
	{Name: "Name", Value: func(j restapi.JobSummary) string { return j.Name() }},
	{Name: "State", Value: func(j restapi.JobSummary) string { return string(j.State()) }},
	{Name: "Started", Value: func(j restapi.JobSummary) string { return formatTime(j.StartTime()) }},
}

var exceptionColumns = []column[restapi.ExceptionEntry]{
	{Name: "Time", Value: func(e restapi.ExceptionEntry) string { return formatMillis(e.Timestamp) }},
	{Name: "Exception", Value: func(e restapi.ExceptionEntry) string { return e.ExceptionName }},
	{Name: "Task", Value: func(e restapi.ExceptionEntry) string { return e.TaskName }},
	{Name: "Endpoint", Value: func(e restapi.ExceptionEntry) string { return e.Endpoint }},
}

// DefaultSavepointPollInterval is how often `jobs savepoint --wait` polls
const DefaultSavepointPollInterval = time.Second

func newJobsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and control jobs",
	}

	cmd.AddCommand(newJobsListCmd(a))

	cmd.AddCommand(&cobra.Command{
		Use:   "get <job-id>",
		Short: "Show the details of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.client.JobDetail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return outputObject(cmd, a.output, job, []field{
				{"ID", job.ID()},
				{"Name", job.Name()},
				{"State", job.State()},
				{"Started", formatTime(job.StartTime())},
				{"Duration", formatDuration(job)},
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.client.CancelJob(cmd.Context(), args[0]) {
				return fmt.Errorf("job %s was not cancelled", args[0])
			}
			cmd.Printf("Cancelled job %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "exceptions <job-id>",
		Short: "Show the exception history of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exceptions, err := a.client.JobExceptions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.output != TableFormat {
				return outputDocument(cmd, a.output, exceptions)
			}
			return outputList(cmd, a.output, exceptionColumns, exceptions.ExceptionHistory.Entries)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "metrics <job-id> [metric...]",
		Short: "Show job metrics (default: uptime, restarts and checkpoint health)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args[1:]
			if len(names) == 0 {
				names = restapi.DefaultJobMetrics
			}

			metrics, err := a.client.JobMetrics(cmd.Context(), args[0], names...)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(metrics))
			for name := range metrics {
				keys = append(keys, name)
			}
			sort.Strings(keys)

			fields := make([]field, 0, len(keys))
			for _, name := range keys {
				fields = append(fields, field{name, strconv.FormatFloat(metrics[name], 'f', -1, 64)})
			}
			return outputObject(cmd, a.output, metrics, fields)
		},
	})

	cmd.AddCommand(newJobsSavepointCmd(a))
	return cmd
}

func newJobsListCmd(a *app) *cobra.Command {
	var running bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				jobs map[string]restapi.JobSummary
				err  error
			)
			if running {
				jobs, err = a.client.ListRunningJobs(cmd.Context())
			} else {
				jobs, err = a.client.ListJobs(cmd.Context())
			}
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(jobs))
			for id := range jobs {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			items := make([]restapi.JobSummary, 0, len(ids))
			for _, id := range ids {
				items = append(items, jobs[id])
			}
			return outputList(cmd, a.output, jobColumns, items)
		},
	}

	cmd.Flags().BoolVar(&running, "running", false, "Only show running jobs")
	return cmd
}

func newJobsSavepointCmd(a *app) *cobra.Command {
	var (
		target string
		cancel bool
		wait   bool
	)

	cmd := &cobra.Command{
		Use:   "savepoint <job-id>",
		Short: "Trigger a savepoint and print its trigger id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			triggerID, err := a.client.TriggerSavepoint(cmd.Context(), args[0], target, cancel)
			if err != nil {
				return err
			}
			if !wait {
				cmd.Println(triggerID)
				return nil
			}

			a.log.Debugf("Waiting for savepoint %s of job %s", triggerID, args[0])
			ticker := time.NewTicker(DefaultSavepointPollInterval)
			defer ticker.Stop()

			for {
				status, err := a.client.SavepointStatus(cmd.Context(), args[0], triggerID)
				if err != nil {
					return err
				}
				if status.Completed() {
					if cause := status.Operation.FailureCause; cause != nil {
						return fmt.Errorf("savepoint %s failed: %s", triggerID, cause.Class)
					}
					cmd.Println(status.Operation.Location)
					return nil
				}

				select {
				case <-ticker.C:
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&target, "target", "", "Savepoint directory (default: the cluster's state.savepoints.dir)")
	flags.BoolVar(&cancel, "cancel", false, "Cancel the job once the savepoint completes")
	flags.BoolVar(&wait, "wait", false, "Wait for completion and print the savepoint location")

	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatDuration(job restapi.JobSummary) string {
	ms, ok := job.Int64("duration")
	if !ok || ms < 0 {
		return ""
	}
	return (time.Duration(ms) * time.Millisecond).String()
}
