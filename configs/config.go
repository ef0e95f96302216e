/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package configs

import (
	"fmt"
	"path/filepath"

	"github.com/konstructio/hybrid-setup/internal/common"
)

const DefaultVersion = "development"

// Version is used by the --version flag. The value is dynamically updated on build time via ldflag.
var Version = DefaultVersion

const (
	DefaultNamespace  = "apigee"
	DefaultAPIURL     = "https://apigee.googleapis.com/v1"
	SystemNamespace   = "apigee-system"
	ServiceAccountEnv = "non-prod"
	ServiceAccountID  = "apigee-non-prod"
)

// Inputs holds the raw values gathered from flags, environment variables and
// the optional config file, before any default is resolved.
type Inputs struct {
	Org           string
	Env           string
	EnvGroup      string
	IngressDomain string
	Namespace     string
	ClusterName   string
	ClusterRegion string
	ProjectID     string
	RootDir       string
	Kubeconfig    string
	APIURL        string
	Verbose       bool
	Phases        PhaseSet
}

// Config is built once at startup and handed by value to every phase.
type Config struct {
	Org           string
	Env           string
	EnvGroup      string
	IngressDomain string
	Namespace     string
	ClusterName   string
	ClusterRegion string
	ProjectID     string
	RootDir       string
	Kubeconfig    string
	APIURL        string
	Verbose       bool
	Phases        PhaseSet
	Platform      PlatformKind
}

// InstanceDirName is the name the template instance directory is renamed to.
func (c Config) InstanceDirName() string {
	return fmt.Sprintf("%s-%s", c.ClusterName, c.ClusterRegion)
}

func (c Config) OverlaysDir() string {
	return filepath.Join(c.RootDir, "overlays")
}

func (c Config) InstanceDir() string {
	return filepath.Join(c.OverlaysDir(), "instances", c.InstanceDirName())
}

func (c Config) ServiceAccountsDir() string {
	return filepath.Join(c.RootDir, "service-accounts")
}

// CredentialFile is where the service account key is downloaded to.
func (c Config) CredentialFile() string {
	return filepath.Join(c.ServiceAccountsDir(), fmt.Sprintf("%s-%s.json", c.ProjectID, ServiceAccountID))
}

func (c Config) ServiceAccountHelper() string {
	return filepath.Join(c.RootDir, "tools", "create-service-account")
}

// NeedsCluster reports whether any requested phase talks to the Kubernetes API.
func (c Config) NeedsCluster() bool {
	return c.Phases.Has(PhaseFillValues) ||
		c.Phases.Has(PhaseServiceAccountAndSecrets) ||
		c.Phases.Has(PhaseIngressCerts) ||
		c.Phases.Has(PhaseApplyConfiguration)
}

// NeedsOverlays reports whether any requested phase reads the overlay tree.
func (c Config) NeedsOverlays() bool {
	return c.Phases.Has(PhaseConfigureDirectoryNames) ||
		c.Phases.Has(PhaseFillValues) ||
		c.Phases.Has(PhaseApplyConfiguration)
}

// Validate checks the resolved values just before any phase runs.
func (c Config) Validate() error {
	if c.Org == "" {
		return common.Fatalf("organization name is required, set --org or ORGANIZATION_NAME")
	}
	if c.Namespace == "" {
		return common.Fatalf("namespace must not be empty")
	}

	needsInstance := c.Phases.Has(PhaseConfigureDirectoryNames) ||
		c.Phases.Has(PhaseFillValues) ||
		c.Phases.Has(PhaseApplyConfiguration)
	if needsInstance {
		if c.ClusterName == "" {
			return common.Fatalf("cluster name is required, set --cluster-name or CLUSTER_NAME")
		}
		if c.ClusterRegion == "" {
			return common.Fatalf("cluster region is required, set --cluster-region or CLUSTER_REGION")
		}
	}

	if c.Phases.Has(PhaseIngressCerts) && c.IngressDomain == "" {
		return common.Fatalf("ingress domain is required, set --ingress-domain or ENVIRONMENT_GROUP_HOSTNAME")
	}

	return nil
}
