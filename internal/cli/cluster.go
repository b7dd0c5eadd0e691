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
	"strconv"

	"github.com/spf13/cobra"

	restapi "github.com/oakproject-flink/flinkctl/flink/rest-api"
)

var taskManagerColumns = []column[restapi.TaskManagerInfo]{
	{Name: "ID", Value: func(t restapi.TaskManagerInfo) string { return t.ID() }},
	{Name: "Slots", Value: func(t restapi.TaskManagerInfo) string {
		total, _ := t.Slots()
		return strconv.FormatInt(total, 10)
	}},
	{Name: "Free", Value: func(t restapi.TaskManagerInfo) string {
		_, free := t.Slots()
		return strconv.FormatInt(free, 10)
	}},
}

var configColumns = []column[restapi.ConfigEntry]{
	{Name: "Key", Value: func(e restapi.ConfigEntry) string { return e.Key }},
	{Name: "Value", Value: func(e restapi.ConfigEntry) string { return e.Value }},
}

func newClusterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Inspect the Flink cluster",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "overview",
		Short: "Show slot and job counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.client.ClusterOverview(cmd.Context())
			if err != nil {
				return err
			}
			return outputObject(cmd, a.output, o, []field{
				{"Flink Version", o.FlinkVersion},
				{"Task Managers", o.TaskManagers},
				{"Slots Total", o.SlotsTotal},
				{"Slots Available", o.SlotsAvailable},
				{"Jobs Running", o.JobsRunning},
				{"Jobs Finished", o.JobsFinished},
				{"Jobs Cancelled", o.JobsCancelled},
				{"Jobs Failed", o.JobsFailed},
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "taskmanagers",
		Short: "List task managers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tms, err := a.client.TaskManagers(cmd.Context())
			if err != nil {
				return err
			}
			return outputList(cmd, a.output, taskManagerColumns, tms)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Show the JobManager configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.client.JobManagerConfig(cmd.Context())
			if err != nil {
				return err
			}
			return outputList(cmd, a.output, configColumns, entries)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Detect the Flink release and REST API version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client.DetectVersion(cmd.Context())
			if err != nil {
				return err
			}
			o, err := a.client.ClusterOverview(cmd.Context())
			if err != nil {
				return err
			}
			return outputObject(cmd, a.output, map[string]string{
				"flinkVersion": o.FlinkVersion,
				"apiVersion":   string(api),
			}, []field{
				{"Flink Version", o.FlinkVersion},
				{"API Version", api},
			})
		},
	})

	return cmd
}
