/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package install

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/konstructio/hybrid-setup/configs"
	"github.com/konstructio/hybrid-setup/internal/common"
	"github.com/konstructio/hybrid-setup/internal/k8s"
	"github.com/rs/zerolog/log"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	CertManagerNamespace = "cert-manager"
	CertificateCRD       = "certificates.cert-manager.io"

	DefaultControllerTimeout = 2 * time.Minute
	DefaultRuntimeTimeout    = 15 * time.Minute

	runningState = "running"
	apigeeGroup  = "apigee.cloud.google.com"
)

// ControllerDeployments must be available before the runtime resources are applied.
var ControllerDeployments = []string{"apigee-controller-manager", "apigee-ingressgateway-manager"}

type Cluster interface {
	NamespaceExists(ctx context.Context, name string) (bool, error)
	CRDExists(ctx context.Context, name string) (bool, error)
	ApplyPath(ctx context.Context, namespace, path string) error
	WaitForDeploymentsAvailable(ctx context.Context, namespace string, names []string, timeout time.Duration) error
	WaitForResourcesState(ctx context.Context, resources []k8s.Resource, state string, timeout time.Duration) error
}

type Installer struct {
	cluster           Cluster
	controllerTimeout time.Duration
	runtimeTimeout    time.Duration
}

type Option func(*Installer)

func WithTimeouts(controllers, runtime time.Duration) Option {
	return func(i *Installer) {
		i.controllerTimeout = controllers
		i.runtimeTimeout = runtime
	}
}

func New(cluster Cluster, opts ...Option) *Installer {
	i := &Installer{
		cluster:           cluster,
		controllerTimeout: DefaultControllerTimeout,
		runtimeTimeout:    DefaultRuntimeTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Apply installs the overlay tree: controllers first, then secrets, then the
// runtime instance, waiting for readiness after the controllers and at the end.
func (i *Installer) Apply(ctx context.Context, cfg configs.Config) error {
	if err := i.precheck(ctx); err != nil {
		return err
	}

	if err := i.applyAll(ctx, cfg.Namespace, ControllerManifests(cfg)); err != nil {
		return err
	}
	if err := i.cluster.WaitForDeploymentsAvailable(ctx, configs.SystemNamespace, ControllerDeployments, i.controllerTimeout); err != nil {
		return err
	}

	if err := i.applyAll(ctx, cfg.Namespace, SecretManifests(cfg)); err != nil {
		return err
	}
	if err := i.applyAll(ctx, cfg.Namespace, []string{cfg.InstanceDir()}); err != nil {
		return err
	}

	return i.cluster.WaitForResourcesState(ctx, RuntimeResources(cfg), runningState, i.runtimeTimeout)
}

func (i *Installer) precheck(ctx context.Context) error {
	ok, err := i.cluster.NamespaceExists(ctx, CertManagerNamespace)
	if err != nil {
		return err
	}
	if !ok {
		return common.Fatalf("namespace %s not found, install cert-manager before applying the configuration", CertManagerNamespace)
	}

	ok, err = i.cluster.CRDExists(ctx, CertificateCRD)
	if err != nil {
		return err
	}
	if !ok {
		return common.Fatalf("CustomResourceDefinition %s not found, install cert-manager before applying the configuration", CertificateCRD)
	}

	return nil
}

func (i *Installer) applyAll(ctx context.Context, namespace string, paths []string) error {
	for _, path := range paths {
		log.Info().Msgf("applying %s", path)
		if err := i.cluster.ApplyPath(ctx, namespace, path); err != nil {
			return fmt.Errorf("unable to apply %s: %w", path, err)
		}
	}

	return nil
}

// ControllerManifests lists the cluster wide manifests in apply order.
func ControllerManifests(cfg configs.Config) []string {
	overlays := cfg.OverlaysDir()

	return []string{
		filepath.Join(overlays, "initialization", "namespace.yaml"),
		filepath.Join(overlays, "initialization", "certificates"),
		filepath.Join(overlays, "initialization", "crds"),
		filepath.Join(overlays, "initialization", "webhooks"),
		filepath.Join(overlays, "initialization", "rbac"),
		filepath.Join(overlays, "initialization", "ingress"),
		filepath.Join(overlays, "controllers"),
	}
}

// SecretManifests lists the secrets the runtime components expect on startup.
func SecretManifests(cfg configs.Config) []string {
	instance := cfg.InstanceDir()

	return []string{
		filepath.Join(instance, "datastore", "secrets.yaml"),
		filepath.Join(instance, "redis", "secrets.yaml"),
		filepath.Join(instance, "environments", cfg.Env, "secrets.yaml"),
		filepath.Join(instance, "organization", "secrets.yaml"),
	}
}

// RuntimeResources lists the custom resources that must reach the running state.
func RuntimeResources(cfg configs.Config) []k8s.Resource {
	resource := func(version, plural, kind, name string) k8s.Resource {
		return k8s.Resource{
			GVR:       schema.GroupVersionResource{Group: apigeeGroup, Version: version, Resource: plural},
			Kind:      kind,
			Namespace: cfg.Namespace,
			Name:      name,
		}
	}

	return []k8s.Resource{
		resource("v1alpha1", "apigeedatastores", "ApigeeDatastore", "default"),
		resource("v1alpha1", "apigeeredis", "ApigeeRedis", "default"),
		resource("v1alpha2", "apigeeenvironments", "ApigeeEnvironment", fmt.Sprintf("%s-%s", cfg.Org, cfg.Env)),
		resource("v1alpha2", "apigeeorganizations", "ApigeeOrganization", cfg.Org),
		resource("v1alpha2", "apigeetelemetries", "ApigeeTelemetry", "apigee-telemetry"),
	}
}
