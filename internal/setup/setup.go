/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package setup

import (
	"context"
	"fmt"

	"github.com/konstructio/hybrid-setup/configs"
	"github.com/konstructio/hybrid-setup/internal/certs"
	"github.com/konstructio/hybrid-setup/internal/progress"
	"github.com/konstructio/hybrid-setup/internal/reports"
)

type Overlays interface {
	RenameDirectories(cfg configs.Config) error
	FillValues(cfg configs.Config) error
}

type Identity interface {
	Provision(ctx context.Context, cfg configs.Config) error
}

type Installer interface {
	Apply(ctx context.Context, cfg configs.Config) error
}

// Deps are the collaborators of each phase. Only the ones used by the
// requested phases need to be set.
type Deps struct {
	Overlays  Overlays
	Identity  Identity
	Certs     certs.Applier
	Installer Installer
}

// Run executes the requested phases in their fixed order and stops at the
// first failure. Nothing is rolled back.
func Run(ctx context.Context, cfg configs.Config, deps Deps, tracker *progress.Tracker) error {
	tracker.Header("Setting up the hybrid runtime",
		fmt.Sprintf("organization %s, environment %s, environment group %s", cfg.Org, cfg.Env, cfg.EnvGroup),
	)

	for _, phase := range cfg.Phases.Ordered() {
		tracker.AddStep(phase.String())

		if err := runPhase(ctx, phase, cfg, deps); err != nil {
			tracker.Error(fmt.Sprintf("%s: %s", phase, err))
			return fmt.Errorf("%s failed: %w", phase.Flag(), err)
		}

		tracker.CompleteStep(phase.String())
	}

	tracker.Success(reports.Summary(cfg)...)

	return nil
}

func runPhase(ctx context.Context, phase configs.Phase, cfg configs.Config, deps Deps) error {
	switch phase {
	case configs.PhaseConfigureDirectoryNames:
		return deps.Overlays.RenameDirectories(cfg)
	case configs.PhaseFillValues:
		return deps.Overlays.FillValues(cfg)
	case configs.PhaseServiceAccountAndSecrets:
		return deps.Identity.Provision(ctx, cfg)
	case configs.PhaseIngressCerts:
		return certs.Issue(ctx, deps.Certs, certs.RequestFromConfig(cfg))
	case configs.PhaseApplyConfiguration:
		return deps.Installer.Apply(ctx, cfg)
	default:
		return fmt.Errorf("unknown phase %d", phase)
	}
}
