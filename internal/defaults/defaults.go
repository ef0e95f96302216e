/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package defaults

import (
	"context"
	"strings"

	"github.com/konstructio/hybrid-setup/configs"
	"github.com/konstructio/hybrid-setup/internal/common"
	"github.com/konstructio/hybrid-setup/internal/platform"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

type ProjectLookup interface {
	CurrentProject(ctx context.Context) (string, error)
}

type Catalog interface {
	ListEnvironments(ctx context.Context, org string) ([]string, error)
	ListEnvGroups(ctx context.Context, org string) ([]platform.EnvGroup, error)
}

// Resolve fills every unset value from the active project and the platform
// catalog and returns the configuration used for the rest of the run.
func Resolve(ctx context.Context, in configs.Inputs, project ProjectLookup, catalog Catalog) (configs.Config, error) {
	cfg := configs.Config{
		Org:           in.Org,
		Env:           in.Env,
		EnvGroup:      in.EnvGroup,
		IngressDomain: in.IngressDomain,
		Namespace:     in.Namespace,
		ClusterName:   in.ClusterName,
		ClusterRegion: in.ClusterRegion,
		ProjectID:     in.ProjectID,
		RootDir:       in.RootDir,
		Kubeconfig:    in.Kubeconfig,
		APIURL:        in.APIURL,
		Verbose:       in.Verbose,
		Phases:        in.Phases,
	}
	if cfg.Namespace == "" {
		cfg.Namespace = configs.DefaultNamespace
	}
	if cfg.APIURL == "" {
		cfg.APIURL = configs.DefaultAPIURL
	}

	if cfg.Org == "" {
		org, err := project.CurrentProject(ctx)
		if err != nil {
			return cfg, err
		}
		if org == "" {
			return cfg, common.Fatalf("organization name is required, set --org or run \"gcloud config set project <project>\"")
		}
		log.Info().Msgf("using organization %q from the active gcloud project", org)
		cfg.Org = org
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = cfg.Org
	}

	envs, err := catalog.ListEnvironments(ctx, cfg.Org)
	if err != nil {
		return cfg, err
	}
	if cfg.Env, err = pick("environment", "--env", cfg.Org, cfg.Env, envs); err != nil {
		return cfg, err
	}

	groups, err := catalog.ListEnvGroups(ctx, cfg.Org)
	if err != nil {
		return cfg, err
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	if cfg.EnvGroup, err = pick("environment group", "--envgroup", cfg.Org, cfg.EnvGroup, names); err != nil {
		return cfg, err
	}

	if cfg.IngressDomain == "" {
		group := groups[slices.Index(names, cfg.EnvGroup)]
		if len(group.Hostnames) > 0 {
			cfg.IngressDomain = group.Hostnames[0]
			log.Info().Msgf("using ingress domain %q from environment group %s", cfg.IngressDomain, cfg.EnvGroup)
		}
	}

	return cfg, nil
}

// pick validates an explicit value against candidates, or selects the only
// candidate when no value was given.
func pick(kind, flag, org, value string, candidates []string) (string, error) {
	if value != "" {
		if !slices.Contains(candidates, value) {
			return "", common.Fatalf("%s %q does not exist in organization %s, available: %s",
				kind, value, org, listOrNone(candidates))
		}
		return value, nil
	}

	switch len(candidates) {
	case 0:
		return "", common.Fatalf("organization %s has no %s, create one first", org, kind)
	case 1:
		log.Info().Msgf("using %s %q, the only one in organization %s", kind, candidates[0], org)
		return candidates[0], nil
	default:
		return "", common.Fatalf("organization %s has more than one %s (%s), choose one with %s",
			org, kind, strings.Join(candidates, ", "), flag)
	}
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}

	return strings.Join(values, ", ")
}
