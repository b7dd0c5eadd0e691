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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// OutputFormat selects how command results are printed
type OutputFormat string

const (
	TableFormat OutputFormat = "table"
	JSONFormat  OutputFormat = "json"
	YAMLFormat  OutputFormat = "yaml"
)

var allFormats = []OutputFormat{TableFormat, JSONFormat, YAMLFormat}

func (f *OutputFormat) String() string { return string(*f) }

func (f *OutputFormat) Set(s string) error {
	for _, format := range allFormats {
		if strings.EqualFold(s, string(format)) {
			*f = format
			return nil
		}
	}
	return fmt.Errorf("invalid output format %q (want %s)", s,
		strings.Join(lo.Map(allFormats, func(f OutputFormat, _ int) string { return string(f) }), ", "))
}

func (f *OutputFormat) Type() string { return "format" }

var plainStyle = table.Style{
	Name:   "flinkctl",
	Box:    table.StyleBoxDefault,
	Color:  table.ColorOptionsDefault,
	Format: table.FormatOptionsDefault,
	HTML:   table.DefaultHTMLOptions,
	Options: table.Options{
		DrawBorder:      false,
		SeparateColumns: false,
		SeparateFooter:  false,
		SeparateHeader:  false,
		SeparateRows:    false,
	},
	Title: table.TitleOptionsDefault,
}

// column renders one table column of T
type column[T any] struct {
	Name  string
	Value func(T) string
}

// outputList prints items as a table or as a JSON/YAML document
func outputList[T any](cmd *cobra.Command, format OutputFormat, columns []column[T], items []T) error {
	if format != TableFormat {
		return outputDocument(cmd, format, items)
	}

	tw := newTable(cmd)
	tw.AppendHeader(lo.Map(columns, func(c column[T], _ int) interface{} { return c.Name }))
	for _, item := range items {
		tw.AppendRow(lo.Map(columns, func(c column[T], _ int) interface{} { return c.Value(item) }))
	}
	tw.Render()
	return nil
}

// field is one row of a key/value table
type field struct {
	Key   string
	Value interface{}
}

// outputObject prints v as a key/value table or as a JSON/YAML document
func outputObject(cmd *cobra.Command, format OutputFormat, v interface{}, fields []field) error {
	if format != TableFormat {
		return outputDocument(cmd, format, v)
	}

	tw := newTable(cmd)
	for _, f := range fields {
		tw.AppendRow(table.Row{f.Key, f.Value})
	}
	tw.Render()
	return nil
}

func outputDocument(cmd *cobra.Command, format OutputFormat, v interface{}) error {
	switch format {
	case JSONFormat:
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case YAMLFormat:
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	default:
		return fmt.Errorf("invalid output format %q", format)
	}
}

func newTable(cmd *cobra.Command) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(plainStyle)
	return tw
}
