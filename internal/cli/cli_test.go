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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/yaml"

	restapi "github.com/oakproject-flink/flinkctl/flink/rest-api"
)

// fakeJobManager answers the REST calls flinkctl makes
type fakeJobManager struct {
	mu        sync.Mutex
	runForm   map[string]string
	cancelled []string
	targets   []string
}

func (f *fakeJobManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method + " " + r.URL.Path {
	case "GET /jars":
		fmt.Fprint(w, `{"address":"http://jm:8081","files":[{"id":"abc_job.jar","name":"job.jar","uploaded":1700000000000,"entry":[{"name":"com.example.Main"}]}]}`)
	case "POST /jars/upload":
		fmt.Fprint(w, `{"filename":"/tmp/flink-web/upload/abc_job.jar","status":"success"}`)
	case "DELETE /jars/abc_job.jar":
		fmt.Fprint(w, `{}`)
	case "POST /jars/abc_job.jar/run":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.runForm = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			f.runForm[k] = v[0]
		}
		fmt.Fprint(w, `{"jobid":"job-1"}`)
	case "GET /jobs/overview":
		fmt.Fprint(w, `{"jobs":[
			{"jid":"j2","name":"batch","state":"FINISHED","start-time":1700000000000},
			{"jid":"j1","name":"stream","state":"RUNNING","start-time":1700000000000}
		]}`)
	case "GET /jobs/j1":
		fmt.Fprint(w, `{"jid":"j1","name":"stream","state":"RUNNING","start-time":1700000000000,"duration":90000}`)
	case "GET /jobs/j1/yarn-cancel":
		f.cancelled = append(f.cancelled, "j1")
		w.WriteHeader(http.StatusAccepted)
	case "GET /jobs/j1/exceptions":
		fmt.Fprint(w, `{"exceptionHistory":{"entries":[{"exceptionName":"java.io.IOException","timestamp":1700000000000,"taskName":"Source"}],"truncated":false}}`)
	case "GET /jobs/j1/metrics":
		fmt.Fprint(w, `[{"id":"uptime","value":"1000"},{"id":"numRestarts","value":"2"}]`)
	case "POST /jobs/j1/savepoints":
		var body struct {
			TargetDirectory string `json:"target-directory"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.targets = append(f.targets, body.TargetDirectory)
		fmt.Fprint(w, `{"request-id":"trigger-1"}`)
	case "GET /jobs/j1/savepoints/trigger-1":
		fmt.Fprint(w, `{"status":{"id":"COMPLETED"},"operation":{"location":"file:/savepoints/savepoint-j1"}}`)
	case "GET /overview":
		fmt.Fprint(w, `{"taskmanagers":1,"slots-total":4,"slots-available":2,"jobs-running":1,"jobs-finished":1,"jobs-cancelled":0,"jobs-failed":0,"flink-version":"1.18.1","flink-commit":"a8c8b1c"}`)
	case "GET /taskmanagers":
		fmt.Fprint(w, `{"taskmanagers":[{"id":"tm-1","slotsNumber":4,"freeSlots":2}]}`)
	case "GET /jobmanager/config":
		fmt.Fprint(w, `[{"key":"rest.port","value":"8081"}]`)
	default:
		http.Error(w, `{"errors":["Not found: `+r.URL.Path+`"]}`, http.StatusNotFound)
	}
}

func newFakeJobManager(t *testing.T) (*fakeJobManager, string) {
	t.Helper()
	jm := &fakeJobManager{}
	server := httptest.NewServer(jm)
	t.Cleanup(server.Close)
	return jm, server.URL
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FLINKCTL_LOG_DIR", t.TempDir())
}

// run executes flinkctl against the JobManager at url and returns stdout
func run(t *testing.T, a *app, url string, args ...string) (string, error) {
	t.Helper()
	isolate(t)

	if a == nil {
		a = &app{}
	}
	cmd := newRootCmd(a)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--jobmanager", url}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestJarsList(t *testing.T) {
	_, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "jars", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ENTRY CLASSES")
	assert.Contains(t, out, "abc_job.jar")
	assert.Contains(t, out, "com.example.Main")
	assert.Contains(t, out, "2023-11-14T22:13:20Z")
}

func TestJarsListJSON(t *testing.T) {
	_, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "jars", "list", "-o", "json")
	require.NoError(t, err)

	var jars []restapi.JarRecord
	require.NoError(t, json.Unmarshal([]byte(out), &jars))
	require.Len(t, jars, 1)
	assert.Equal(t, "job.jar", jars[0].Name)
}

func TestJarsUpload(t *testing.T) {
	_, url := newFakeJobManager(t)
	jar := filepath.Join(t.TempDir(), "job.jar")
	require.NoError(t, os.WriteFile(jar, []byte("PK"), 0644))

	out, err := run(t, nil, url, "jars", "upload", jar)
	require.NoError(t, err)
	assert.Equal(t, "abc_job.jar\n", out)
}

func TestJarsUploadMissingFile(t *testing.T) {
	_, url := newFakeJobManager(t)

	_, err := run(t, nil, url, "jars", "upload", filepath.Join(t.TempDir(), "missing.jar"))
	require.Error(t, err)

	var uploadErr *restapi.UploadError
	assert.True(t, errors.As(err, &uploadErr))
}

func TestJarsDelete(t *testing.T) {
	_, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "jars", "delete", "abc_job.jar")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted jar abc_job.jar")
}

func TestJarsRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want map[string]string
	}{
		{
			name: "defaults",
			args: nil,
			want: map[string]string{
				"allowNonRestoredState": "false",
				"parallelism":           "1",
				"programArg":            "",
				"entry-class":           "com.example.Main",
			},
		},
		{
			name: "overrides",
			args: []string{"-p", "3", "--entry-class", "com.example.Other", "--savepoint", "/sp/1", "--allow-non-restored", "--args=--input a"},
			want: map[string]string{
				"allowNonRestoredState": "true",
				"parallelism":           "3",
				"programArg":            "--input a",
				"entry-class":           "com.example.Other",
				"savepointPath":         "/sp/1",
			},
		},
		{
			name: "default savepoint",
			args: []string{"--default-savepoint", "s3://bucket/sp"},
			want: map[string]string{
				"allowNonRestoredState": "false",
				"parallelism":           "1",
				"programArg":            "",
				"entry-class":           "com.example.Main",
				"savepointPath":         "s3://bucket/sp",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jm, url := newFakeJobManager(t)

			out, err := run(t, nil, url, append([]string{"jars", "run", "abc_job.jar"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, "job-1\n", out)
			assert.Equal(t, tt.want, jm.runForm)
		})
	}
}

func TestJarsRunParallelismFromConfig(t *testing.T) {
	jm, url := newFakeJobManager(t)
	t.Setenv("FLINKCTL_RUN_PARALLELISM", "6")

	_, err := run(t, nil, url, "jars", "run", "abc_job.jar")
	require.NoError(t, err)
	assert.Equal(t, "6", jm.runForm["parallelism"])
}

func TestJobsList(t *testing.T) {
	_, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "jobs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "FINISHED")
	assert.Less(t, strings.Index(out, "j1"), strings.Index(out, "j2"), "jobs are sorted by id")

	out, err = run(t, nil, url, "jobs", "list", "--running")
	require.NoError(t, err)
	assert.Contains(t, out, "stream")
	assert.NotContains(t, out, "batch")
}

func TestJobsGet(t *testing.T) {
	_, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "jobs", "get", "j1")
	require.NoError(t, err)
	assert.Contains(t, out, "RUNNING")
	assert.Contains(t, out, "1m30s")

	_, err = run(t, nil, url, "jobs", "get", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, restapi.ErrNotFound))
}

func TestJobsCancel(t *testing.T) {
	jm, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "jobs", "cancel", "j1")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled job j1")
	assert.Equal(t, []string{"j1"}, jm.cancelled)

	_, err = run(t, nil, url, "jobs", "cancel", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not cancelled")
}

func TestJobsExceptions(t *testing.T) {
	_, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "jobs", "exceptions", "j1")
	require.NoError(t, err)
	assert.Contains(t, out, "java.io.IOException")
	assert.Contains(t, out, "Source")
}

func TestJobsMetrics(t *testing.T) {
	_, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "jobs", "metrics", "j1", "uptime", "numRestarts", "-o", "json")
	require.NoError(t, err)

	var metrics map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &metrics))
	assert.Equal(t, map[string]float64{"uptime": 1000, "numRestarts": 2}, metrics)
}

func TestJobsSavepoint(t *testing.T) {
	jm, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "jobs", "savepoint", "j1", "--target", "file:/savepoints")
	require.NoError(t, err)
	assert.Equal(t, "trigger-1\n", out)

	out, err = run(t, nil, url, "jobs", "savepoint", "j1", "--wait")
	require.NoError(t, err)
	assert.Equal(t, "file:/savepoints/savepoint-j1\n", out)

	assert.Equal(t, []string{"file:/savepoints", ""}, jm.targets)
}

func TestJobsSavepointIgnoresRestorePath(t *testing.T) {
	jm, url := newFakeJobManager(t)

	_, err := run(t, nil, url, "--default-savepoint", "s3://bucket/restore", "jobs", "savepoint", "j1")
	require.NoError(t, err)

	require.Len(t, jm.targets, 1)
	assert.Empty(t, jm.targets[0], "savepoint target should be left to state.savepoints.dir")
}

func TestClusterOverviewYAML(t *testing.T) {
	_, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "cluster", "overview", "-o", "yaml")
	require.NoError(t, err)

	var overview restapi.ClusterOverview
	require.NoError(t, yaml.Unmarshal([]byte(out), &overview))
	assert.Equal(t, "1.18.1", overview.FlinkVersion)
	assert.Equal(t, 4, overview.SlotsTotal)
}

func TestClusterTaskManagersAndConfig(t *testing.T) {
	_, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "cluster", "taskmanagers")
	require.NoError(t, err)
	assert.Contains(t, out, "tm-1")

	out, err = run(t, nil, url, "cluster", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "rest.port")
}

func TestClusterVersion(t *testing.T) {
	_, url := newFakeJobManager(t)

	out, err := run(t, nil, url, "cluster", "version", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"flinkVersion":"1.18.1","apiVersion":"1.x"}`, out)
}

func TestInvalidOutputFormat(t *testing.T) {
	_, url := newFakeJobManager(t)

	_, err := run(t, nil, url, "jars", "list", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestUnreachableJobManager(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := run(t, nil, url, "jobs", "list")
	require.Error(t, err)

	var reqErr *restapi.RequestError
	assert.True(t, errors.As(err, &reqErr))
}

func TestKubernetesDiscovery(t *testing.T) {
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "flink-jobmanager", Namespace: "streaming"},
		Spec: corev1.ServiceSpec{Ports: []corev1.ServicePort{
			{Name: "rpc", Port: 6123},
			{Name: "rest", Port: 8081},
		}},
	}

	tests := []struct {
		name    string
		args    []string
		wantURL string
		wantErr string
	}{
		{
			name:    "resolves service",
			args:    []string{"--k8s-service", "flink-jobmanager", "--k8s-namespace", "streaming"},
			wantURL: "http://flink-jobmanager.streaming.svc:8081",
		},
		{
			name:    "unknown service",
			args:    []string{"--k8s-service", "other", "--k8s-namespace", "streaming"},
			wantErr: "not found",
		},
		{
			name:    "discovery disabled",
			args:    []string{"--jobmanager", "http://jm.example:8081"},
			wantURL: "http://jm.example:8081",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)

			a := &app{newKubeClient: func() (kubernetes.Interface, error) {
				return fake.NewSimpleClientset(svc), nil
			}}
			cmd := newRootCmd(a)
			cmd.SetContext(context.Background())
			require.NoError(t, cmd.ParseFlags(tt.args))

			err := a.setup(cmd)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { a.teardown() })
			assert.Equal(t, tt.wantURL, a.client.BaseURL())
		})
	}
}

func TestOutputFormatFlag(t *testing.T) {
	var f OutputFormat
	require.NoError(t, f.Set("YAML"))
	assert.Equal(t, YAMLFormat, f)
	assert.Equal(t, "yaml", f.String())

	err := f.Set("csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table, json, yaml")
}
