/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/konstructio/hybrid-setup/configs"
	"github.com/konstructio/hybrid-setup/internal/common"
	"github.com/konstructio/hybrid-setup/internal/defaults"
	"github.com/konstructio/hybrid-setup/internal/flagset"
	"github.com/konstructio/hybrid-setup/internal/gcloud"
	"github.com/konstructio/hybrid-setup/internal/identity"
	"github.com/konstructio/hybrid-setup/internal/install"
	"github.com/konstructio/hybrid-setup/internal/k8s"
	"github.com/konstructio/hybrid-setup/internal/logging"
	"github.com/konstructio/hybrid-setup/internal/overlays"
	"github.com/konstructio/hybrid-setup/internal/platform"
	"github.com/konstructio/hybrid-setup/internal/prechecks"
	"github.com/konstructio/hybrid-setup/internal/progress"
	"github.com/konstructio/hybrid-setup/internal/setup"
	"github.com/konstructio/hybrid-setup/internal/shell"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hybrid-setup",
		Short: "installs the hybrid API runtime onto a Kubernetes cluster",
		Long: `hybrid-setup prepares the overlay tree and installs the hybrid API runtime
onto a Kubernetes cluster. Select the phases to run with their flags, or run
them all with --setup-all. Phases always run in the order they are listed.`,
		Version:       configs.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return common.Fatalf("unexpected arguments: %v", args)
			}
			return nil
		},
		RunE: runSetup,
	}

	flagset.DefineSetupFlags(cmd)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return common.Fatalf("%w\n\n%s", err, c.UsageString())
	})

	return cmd
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	in, err := flagset.ProcessSetupFlags(cmd)
	if err != nil {
		return common.Fatal(err)
	}
	logging.Init(in.Verbose)

	if in.Phases.Empty() {
		fmt.Fprintln(cmd.OutOrStdout(), "No phase selected, nothing to do.")
		return cmd.Usage()
	}

	if err := prechecks.RequireCommands(gcloud.Binary); err != nil {
		return err
	}

	ctx := cmd.Context()
	runner := shell.ExecRunner{Verbose: in.Verbose}
	gc := gcloud.New(runner)
	api := platform.New(ctx, in.APIURL, gc.TokenSource(ctx))

	cfg, err := defaults.Resolve(ctx, in, gc, api)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.NeedsOverlays() {
		if err := prechecks.DirExists(cfg.OverlaysDir()); err != nil {
			return common.Fatal(err)
		}
	}
	log.Info().Msgf("running phases %s for organization %s", cfg.Phases, cfg.Org)

	fs := afero.NewOsFs()
	deps := setup.Deps{Overlays: overlays.New(fs)}

	if cfg.NeedsCluster() {
		kcl, err := k8s.CreateKubeConfig(cfg.Kubeconfig)
		if err != nil {
			return common.Fatal(err)
		}

		if cfg.Phases.Has(configs.PhaseFillValues) {
			if cfg.Platform, err = kcl.DetectPlatform(ctx); err != nil {
				return err
			}
		}

		deps.Identity = identity.New(fs, runner, api, kcl)
		deps.Certs = kcl
		deps.Installer = install.New(kcl)
	}

	out := cmd.OutOrStdout()
	return setup.Run(ctx, cfg, deps, progress.New(out, progressOptions(out)...))
}

// progressOptions drops the markdown styling when out is not a terminal.
func progressOptions(out io.Writer) []progress.Option {
	if termenv.NewOutput(out).Profile == termenv.Ascii {
		return []progress.Option{progress.WithoutStyles()}
	}

	return nil
}
