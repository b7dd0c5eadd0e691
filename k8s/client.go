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

// Package k8s resolves the Flink JobManager REST endpoint from a Kubernetes Service.
package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// DefaultRESTPort is the JobManager REST port when the Service does not name one
const DefaultRESTPort int32 = 8081

// NewClient creates a Kubernetes client
// It tries in-cluster config first, then falls back to kubeconfig
func NewClient() (kubernetes.Interface, error) {
	config, err := GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubernetes config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return clientset, nil
}

// GetConfig returns a Kubernetes REST config
func GetConfig() (*rest.Config, error) {
	config, err := rest.InClusterConfig()
	if err == nil {
		return config, nil
	}

	return GetKubeconfigConfig()
}

// GetKubeconfigConfig loads config from $KUBECONFIG or ~/.kube/config
func GetKubeconfigConfig() (*rest.Config, error) {
	kubeconfigPath := os.Getenv("KUBECONFIG")
	if kubeconfigPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		kubeconfigPath = filepath.Join(home, ".kube", "config")
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
	}

	return config, nil
}

// IsInCluster checks if the code is running inside a Kubernetes cluster
func IsInCluster() bool {
	_, err := rest.InClusterConfig()
	return err == nil
}

// ResolveJobManagerURL looks up the JobManager Service and returns its
// cluster-local REST URL, e.g. http://flink-jobmanager.streaming.svc:8081.
// The port named portName wins; otherwise a port numbered 8081, then the
// only port of a single-port Service.
func ResolveJobManagerURL(ctx context.Context, clientset kubernetes.Interface, namespace, service, portName string) (string, error) {
	svc, err := clientset.CoreV1().Services(namespace).Get(ctx, service, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", fmt.Errorf("jobmanager service %s/%s not found", namespace, service)
		}
		return "", fmt.Errorf("failed to get service %s/%s: %w", namespace, service, err)
	}

	port, err := restPort(svc, portName)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("http://%s.%s.svc:%d", svc.Name, svc.Namespace, port), nil
}

func restPort(svc *corev1.Service, portName string) (int32, error) {
	ports := svc.Spec.Ports
	if portName != "" {
		for _, p := range ports {
			if p.Name == portName {
				return p.Port, nil
			}
		}
	}
	for _, p := range ports {
		if p.Port == DefaultRESTPort {
			return p.Port, nil
		}
	}
	if len(ports) == 1 {
		return ports[0].Port, nil
	}
	return 0, fmt.Errorf("service %s/%s has no port named %q and no port %d", svc.Namespace, svc.Name, portName, DefaultRESTPort)
}
