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
	"strings"
	"time"

	"github.com/spf13/cobra"

	restapi "github.com/oakproject-flink/flinkctl/flink/rest-api"
)

var jarColumns = []column[restapi.JarRecord]{
	{Name: "ID", Value: func(j restapi.JarRecord) string { return j.ID }},
	{Name: "Name", Value: func(j restapi.JarRecord) string { return j.Name }},
	{Name: "Uploaded", Value: func(j restapi.JarRecord) string { return formatMillis(j.Uploaded) }},
	{Name: "Entry Classes", Value: func(j restapi.JarRecord) string { return strings.Join(j.EntryClasses, ",") }},
}

func newJarsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jars",
		Short: "Manage uploaded jars",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List uploaded jars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jars, err := a.client.ListJars(cmd.Context())
			if err != nil {
				return err
			}
			return outputList(cmd, a.output, jarColumns, jars)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "upload <jar-file>",
		Short: "Upload a jar and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jarID, err := a.client.UploadJar(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.log.Debugf("Uploaded %s as %s", args[0], jarID)
			cmd.Println(jarID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <jar-id>",
		Short: "Delete an uploaded jar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.DeleteJar(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted jar %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(newJarsRunCmd(a))
	return cmd
}

func newJarsRunCmd(a *app) *cobra.Command {
	var req restapi.RunRequest

	cmd := &cobra.Command{
		Use:   "run <jar-id>",
		Short: "Start a job from an uploaded jar and print its job id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("parallelism") {
				req.Parallelism = a.cfg.Run.Parallelism
			}

			jobID, err := a.client.RunJar(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			a.log.Debugf("Started job %s from jar %s", jobID, args[0])
			cmd.Println(jobID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.EntryClass, "entry-class", "", "Entry class (default: the jar's first entry class)")
	flags.IntVarP(&req.Parallelism, "parallelism", "p", restapi.DefaultParallelism, "Job parallelism")
	flags.StringVarP(&req.SavepointPath, "savepoint", "s", "", "Savepoint to restore from")
	flags.BoolVar(&req.AllowNonRestoredState, "allow-non-restored", false, "Allow savepoint state that maps to no operator")
	flags.StringVar(&req.ProgramArgs, "args", "", "Program arguments passed to the entry class")

	return cmd
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
