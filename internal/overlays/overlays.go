/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package overlays

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/konstructio/hybrid-setup/configs"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	templateInstance = "instance1"
	templateEnv      = "test"
	templateEnvGroup = "test-envgroup"

	meshConfigFile = "controllers/istiod/apigee-istio-mesh-config.yaml"
)

// Editor edits the overlay tree in place.
type Editor struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Editor {
	return &Editor{fs: fs}
}

// RenameDirectories renames the template instance, environment and
// environment group directories. Renames already done are skipped.
func (e *Editor) RenameDirectories(cfg configs.Config) error {
	instances := filepath.Join(cfg.OverlaysDir(), "instances")
	instance := cfg.InstanceDir()

	renames := []struct{ from, to string }{
		{filepath.Join(instances, templateInstance), instance},
		{filepath.Join(instance, "environments", templateEnv), filepath.Join(instance, "environments", cfg.Env)},
		{filepath.Join(instance, "route-config", templateEnvGroup), filepath.Join(instance, "route-config", cfg.EnvGroup)},
	}

	for _, r := range renames {
		if err := e.rename(r.from, r.to); err != nil {
			return err
		}
	}

	return nil
}

func (e *Editor) rename(from, to string) error {
	if from == to {
		return nil
	}

	exists, err := afero.DirExists(e.fs, to)
	if err != nil {
		return fmt.Errorf("unable to check %s: %w", to, err)
	}
	if exists {
		log.Info().Msgf("%s already exists, skipping rename", to)
		return nil
	}

	if _, err := e.fs.Stat(from); errors.Is(err, fs.ErrNotExist) {
		log.Warn().Msgf("%s does not exist, skipping rename to %s", from, filepath.Base(to))
		return nil
	}

	if err := e.fs.Rename(from, to); err != nil {
		return fmt.Errorf("unable to rename %s to %s: %w", from, to, err)
	}
	log.Info().Msgf("renamed %s to %s", from, to)

	return nil
}

// FillValues writes the resolved values into the overlay tree. OpenShift
// blocks are un-commented first so the setters inside them apply and the
// blocks keep their indentation.
func (e *Editor) FillValues(cfg configs.Config) error {
	if cfg.Platform == configs.PlatformOpenShift {
		if err := e.EnableOpenShiftBlocks(cfg.OverlaysDir()); err != nil {
			return err
		}
	}

	if err := e.ApplySetters(cfg.OverlaysDir(), Setters(cfg)); err != nil {
		return err
	}

	return e.SubstituteMeshConfig(cfg)
}

// Setters returns the setter values referenced by the overlay templates.
func Setters(cfg configs.Config) map[string]string {
	return map[string]string{
		"APIGEE_NAMESPACE": cfg.Namespace,
		"ORG_NAME":         cfg.Org,
		"ENV_NAME":         cfg.Env,
		"ENV_GROUP":        cfg.EnvGroup,
		"INGRESS_DOMAIN":   cfg.IngressDomain,
		"CLUSTER_NAME":     cfg.ClusterName,
		"CLUSTER_REGION":   cfg.ClusterRegion,
		"GCP_PROJECT_ID":   cfg.ProjectID,
		"INSTANCE_ID":      cfg.InstanceDirName(),
	}
}
