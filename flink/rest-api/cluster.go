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
	"strconv"
	"strings"
)

// Version represents a Flink version range with a distinct REST API
type Version string

const (
	// VersionAuto assumes the 1.x API, which every supported release still serves
	VersionAuto Version = "auto"
	// Version1x covers Flink 1.x, where cancellation goes through yarn-cancel
	Version1x Version = "1.x"
	// Version2_0Plus covers Flink 2.0 and above
	Version2_0Plus Version = "2.0+"
)

// ParseVersion accepts a version range name ("auto", "1.x", "2.0+") or a
// concrete Flink release such as "1.17.2" and returns its range
func ParseVersion(s string) (Version, error) {
	switch v := Version(strings.TrimSpace(s)); v {
	case "", VersionAuto:
		return VersionAuto, nil
	case Version1x, Version2_0Plus:
		return v, nil
	}

	major, _, err := parseRelease(s)
	if err != nil {
		return "", err
	}
	if major >= 2 {
		return Version2_0Plus, nil
	}
	return Version1x, nil
}

// parseRelease parses a version string like "1.18.0" or "v2.1"
func parseRelease(version string) (major, minor int, err error) {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")

	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("invalid version format: %s", version)
	}

	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid major version: %w", err)
	}

	// Tolerate suffixes such as "1.19-SNAPSHOT"
	minor, err = strconv.Atoi(strings.SplitN(parts[1], "-", 2)[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minor version: %w", err)
	}

	return major, minor, nil
}

// ClusterOverview returns the cluster overview
// Endpoint: GET /overview
func (c *Client) ClusterOverview(ctx context.Context) (*ClusterOverview, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/overview", nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster overview: %w", err)
	}

	var overview ClusterOverview
	if err := unmarshalResponse(resp, &overview); err != nil {
		return nil, err
	}

	return &overview, nil
}

// DetectVersion asks the cluster for its release and maps it to a Version.
// The result is not cached; pass it to WithVersion to pin a new client.
func (c *Client) DetectVersion(ctx context.Context) (Version, error) {
	overview, err := c.ClusterOverview(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to detect version: %w", err)
	}

	version, err := ParseVersion(overview.FlinkVersion)
	if err != nil {
		return "", fmt.Errorf("failed to parse Flink version %q: %w", overview.FlinkVersion, err)
	}
	return version, nil
}

// JobManagerConfig returns the JobManager configuration
// Endpoint: GET /jobmanager/config
func (c *Client) JobManagerConfig(ctx context.Context) ([]ConfigEntry, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/jobmanager/config", nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get jobmanager config: %w", err)
	}

	var entries []ConfigEntry
	if err := unmarshalResponse(resp, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// TaskManagers lists the cluster's worker nodes.
// A missing "taskmanagers" key yields an empty list.
// Endpoint: GET /taskmanagers
func (c *Client) TaskManagers(ctx context.Context) ([]TaskManagerInfo, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/taskmanagers", nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list task managers: %w", err)
	}

	managers := []TaskManagerInfo{}

	var listing struct {
		TaskManagers []json.RawMessage `json:"taskmanagers"`
	}
	if err := unmarshalResponse(resp, &listing); err != nil {
		c.debugf("treating unreadable task manager listing as empty: %v", err)
		return managers, nil
	}

	for _, raw := range listing.TaskManagers {
		var tm TaskManagerInfo
		if err := unmarshalJSON(raw, &tm); err != nil || tm == nil {
			continue
		}
		managers = append(managers, tm)
	}

	return managers, nil
}
