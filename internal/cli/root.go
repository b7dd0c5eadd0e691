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

// Package cli implements the flinkctl command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"

	"github.com/oakproject-flink/flinkctl/config"
	restapi "github.com/oakproject-flink/flinkctl/flink/rest-api"
	"github.com/oakproject-flink/flinkctl/k8s"
	"github.com/oakproject-flink/flinkctl/logger"
)

// app is the state shared by every command of one invocation
type app struct {
	configFile string
	output     OutputFormat

	cfg    *config.Config
	client *restapi.Client
	log    *logger.Logger

	newKubeClient func() (kubernetes.Interface, error)
}

// flagBindings maps persistent flags onto config keys
var flagBindings = map[string]string{
	"jobmanager":        config.KeyJobManagerURL,
	"timeout":           config.KeyJobManagerTimeout,
	"flink-version":     config.KeyJobManagerVersion,
	"tracing":           config.KeyTracing,
	"log-format":        config.KeyLogFormat,
	"debug":             config.KeyLogDebug,
	"k8s-namespace":     config.KeyK8sNamespace,
	"k8s-service":       config.KeyK8sService,
	"k8s-port-name":     config.KeyK8sPortName,
	"default-savepoint": config.KeySavepointPath,
}

// NewRootCmd builds the flinkctl command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{newKubeClient: k8s.NewClient})
}

func newRootCmd(a *app) *cobra.Command {
	a.output = TableFormat

	rootCmd := &cobra.Command{
		Use:           "flinkctl",
		Short:         "Control jobs on an Apache Flink cluster",
		Long:          "flinkctl uploads jars, submits and cancels jobs and inspects an Apache Flink cluster through its JobManager REST API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default: $HOME/.flinkctl.yaml)")
	flags.VarP(&a.output, "output", "o", "Output format: table, json or yaml")
	flags.String("jobmanager", "", "JobManager REST URL (default: http://localhost:8081)")
	flags.Duration("timeout", restapi.DefaultTimeout, "Request timeout")
	flags.String("flink-version", string(restapi.VersionAuto), "Flink REST API version: auto, 1.x, 2.0+ or a release like 1.18.1")
	flags.Bool("tracing", false, "Trace JobManager requests with OpenTelemetry")
	flags.String("log-format", string(logger.FormatText), "Log format: text or json")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("k8s-namespace", "default", "Namespace of the JobManager service")
	flags.String("k8s-service", "", "Resolve the JobManager URL from this Kubernetes service")
	flags.String("k8s-port-name", "rest", "Name of the REST port on the JobManager service")
	flags.String("default-savepoint", "", "Savepoint path used by jar runs that name none")

	rootCmd.AddCommand(newJarsCmd(a))
	rootCmd.AddCommand(newJobsCmd(a))
	rootCmd.AddCommand(newClusterCmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	return rootCmd
}

// setup loads configuration and connects the client before any subcommand runs
func (a *app) setup(cmd *cobra.Command) error {
	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}

	for name, key := range flagBindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	if serveFlag := cmd.Flags().Lookup("address"); serveFlag != nil {
		if err := v.BindPFlag(config.KeyServeAddress, serveFlag); err != nil {
			return fmt.Errorf("failed to bind flag --address: %w", err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger.SetGlobalConfig(&cfg.Log)
	a.log = logger.NewComponent("cli")

	baseURL := cfg.JobManager.URL
	if cfg.Kubernetes.Enabled() {
		baseURL, err = a.resolveJobManager(cmd.Context())
		if err != nil {
			return err
		}
	}

	opts := append(cfg.ClientOptions(), restapi.WithLogger(logger.NewComponent("restapi")))
	client, err := restapi.NewClient(baseURL, opts...)
	if err != nil {
		return err
	}
	a.client = client
	a.log.Debugf("Using JobManager at %s (API %s)", client.BaseURL(), client.Version())

	return nil
}

func (a *app) resolveJobManager(ctx context.Context) (string, error) {
	if k8s.IsInCluster() {
		a.log.Debugf("Using in-cluster Kubernetes config")
	} else {
		a.log.Debugf("Using kubeconfig for Kubernetes access")
	}

	clientset, err := a.newKubeClient()
	if err != nil {
		return "", err
	}

	k := a.cfg.Kubernetes
	url, err := k8s.ResolveJobManagerURL(ctx, clientset, k.Namespace, k.Service, k.PortName)
	if err != nil {
		return "", err
	}
	a.log.Debugf("Resolved JobManager service %s/%s to %s", k.Namespace, k.Service, url)
	return url, nil
}

func (a *app) teardown() error {
	if a.client != nil {
		a.client.Close()
	}
	return logger.CloseAll()
}

// Execute runs flinkctl and exits non-zero on failure
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd := NewRootCmd()
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.CloseAll()
		cancel()
		os.Exit(1)
	}
}
