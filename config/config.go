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

// Package config loads flinkctl settings from defaults, an optional YAML
// file, FLINKCTL_* environment variables and bound command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	restapi "github.com/oakproject-flink/flinkctl/flink/rest-api"
	"github.com/oakproject-flink/flinkctl/logger"
)

// EnvPrefix prefixes every environment variable, e.g. FLINKCTL_JOBMANAGER_URL
const EnvPrefix = "FLINKCTL"

// Keys shared by viper, the config file and flag bindings
const (
	KeyJobManagerURL     = "jobmanager.url"
	KeyJobManagerTimeout = "jobmanager.timeout"
	KeyJobManagerVersion = "jobmanager.version"
	KeyTracing           = "jobmanager.tracing"
	KeySavepointPath     = "run.savepoint-path"
	KeyParallelism       = "run.parallelism"
	KeyLogFormat         = "log.format"
	KeyLogDir            = "log.dir"
	KeyLogDebug          = "log.debug"
	KeyLogToFile         = "log.to-file"
	KeyK8sNamespace      = "kubernetes.namespace"
	KeyK8sService        = "kubernetes.service"
	KeyK8sPortName       = "kubernetes.port-name"
	KeyServeAddress      = "serve.address"
)

// Config is the resolved flinkctl configuration
type Config struct {
	JobManager JobManager
	Run        Run
	Log        logger.Config
	Kubernetes Kubernetes
	Serve      Serve
}

// JobManager describes how to reach the Flink REST API
type JobManager struct {
	URL     string
	Timeout time.Duration
	Version restapi.Version
	Tracing bool
}

// Run holds defaults for job submission
type Run struct {
	SavepointPath string
	Parallelism   int
}

// Kubernetes locates the JobManager through a Service instead of a fixed URL
type Kubernetes struct {
	Namespace string
	Service   string
	PortName  string
}

// Enabled reports whether Kubernetes discovery was requested
func (k Kubernetes) Enabled() bool {
	return k.Service != ""
}

// Serve configures the HTTP gateway
type Serve struct {
	Address string
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyJobManagerURL, "http://localhost:8081")
	v.SetDefault(KeyJobManagerTimeout, restapi.DefaultTimeout)
	v.SetDefault(KeyJobManagerVersion, string(restapi.VersionAuto))
	v.SetDefault(KeyTracing, false)
	v.SetDefault(KeySavepointPath, "")
	v.SetDefault(KeyParallelism, restapi.DefaultParallelism)
	v.SetDefault(KeyLogFormat, string(logger.FormatText))
	v.SetDefault(KeyLogDir, logger.DefaultConfig().LogDir)
	v.SetDefault(KeyLogDebug, false)
	v.SetDefault(KeyLogToFile, false)
	v.SetDefault(KeyK8sNamespace, "default")
	v.SetDefault(KeyK8sService, "")
	v.SetDefault(KeyK8sPortName, "rest")
	v.SetDefault(KeyServeAddress, ":8080")
}

// New returns a viper instance with defaults and environment binding.
// configFile may be empty, in which case $HOME/.flinkctl.yaml is read if present.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		return v, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return v, nil
	}
	v.SetConfigFile(filepath.Join(home, ".flinkctl.yaml"))
	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// Load resolves and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	version, err := restapi.ParseVersion(v.GetString(KeyJobManagerVersion))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyJobManagerVersion, err)
	}

	format, err := logger.ParseFormat(v.GetString(KeyLogFormat))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyLogFormat, err)
	}

	cfg := &Config{
		JobManager: JobManager{
			URL:     strings.TrimSpace(v.GetString(KeyJobManagerURL)),
			Timeout: v.GetDuration(KeyJobManagerTimeout),
			Version: version,
			Tracing: v.GetBool(KeyTracing),
		},
		Run: Run{
			SavepointPath: v.GetString(KeySavepointPath),
			Parallelism:   v.GetInt(KeyParallelism),
		},
		Log: logger.Config{
			LogDir:    v.GetString(KeyLogDir),
			Format:    format,
			Debug:     v.GetBool(KeyLogDebug),
			ToConsole: true,
			Stderr:    true,
			ToFile:    v.GetBool(KeyLogToFile),
			BufSize:   1000,
		},
		Kubernetes: Kubernetes{
			Namespace: v.GetString(KeyK8sNamespace),
			Service:   v.GetString(KeyK8sService),
			PortName:  v.GetString(KeyK8sPortName),
		},
		Serve: Serve{
			Address: v.GetString(KeyServeAddress),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check on its own
func (c *Config) Validate() error {
	if c.JobManager.URL == "" && !c.Kubernetes.Enabled() {
		return fmt.Errorf("%s must be set", KeyJobManagerURL)
	}
	if c.JobManager.Timeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyJobManagerTimeout, c.JobManager.Timeout)
	}
	if c.Run.Parallelism < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyParallelism, c.Run.Parallelism)
	}
	if c.Kubernetes.Enabled() && c.Kubernetes.Namespace == "" {
		return fmt.Errorf("%s must be set when %s is", KeyK8sNamespace, KeyK8sService)
	}
	return nil
}

// ClientOptions translates the JobManager settings into client options
func (c *Config) ClientOptions() []restapi.Option {
	opts := []restapi.Option{
		restapi.WithTimeout(c.JobManager.Timeout),
		restapi.WithVersion(c.JobManager.Version),
		restapi.WithSavepointPath(c.Run.SavepointPath),
	}
	if c.JobManager.Tracing {
		opts = append(opts, restapi.WithTracing())
	}
	return opts
}
