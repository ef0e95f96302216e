/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/konstructio/hybrid-setup/configs"
	"github.com/konstructio/hybrid-setup/internal/common"
	"github.com/konstructio/hybrid-setup/internal/gcloud"
	"github.com/konstructio/hybrid-setup/internal/platform"
	"github.com/konstructio/hybrid-setup/internal/shell"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/exp/slices"
)

// SecretKey is the data key every service account secret stores the key under.
const SecretKey = "client_secret.json"

type SyncAuthorizer interface {
	GetSyncAuthorization(ctx context.Context, org string) (platform.SyncAuthorization, error)
	SetSyncAuthorization(ctx context.Context, org string, sa platform.SyncAuthorization) (platform.SyncAuthorization, error)
}

type SecretWriter interface {
	EnsureSecret(ctx context.Context, namespace, name string, data map[string][]byte) error
}

// KeyValidator checks a service account key and returns its identity.
type KeyValidator func(ctx context.Context, key []byte) (gcloud.ServiceAccountKey, error)

// Provisioner makes sure the runtime service account exists, is allowed to
// synchronize configuration and is available to the cluster as secrets.
type Provisioner struct {
	fs       afero.Fs
	runner   shell.Runner
	auth     SyncAuthorizer
	secrets  SecretWriter
	validate KeyValidator
}

type Option func(*Provisioner)

// WithKeyValidator replaces the token exchange used to validate keys.
func WithKeyValidator(v KeyValidator) Option {
	return func(p *Provisioner) { p.validate = v }
}

func New(fs afero.Fs, runner shell.Runner, auth SyncAuthorizer, secrets SecretWriter, opts ...Option) *Provisioner {
	p := &Provisioner{
		fs:       fs,
		runner:   runner,
		auth:     auth,
		secrets:  secrets,
		validate: gcloud.ValidateKey,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Provision runs the whole identity phase for cfg.
func (p *Provisioner) Provision(ctx context.Context, cfg configs.Config) error {
	if err := p.ensureCredentialFile(ctx, cfg); err != nil {
		return err
	}

	key, err := afero.ReadFile(p.fs, cfg.CredentialFile())
	if err != nil {
		return fmt.Errorf("unable to read service account key: %w", err)
	}

	account, err := p.validate(ctx, key)
	if err != nil {
		return common.Fatalf("service account key %s is not usable: %w", cfg.CredentialFile(), err)
	}

	if err := p.authorize(ctx, cfg.Org, account.Member()); err != nil {
		return err
	}

	for _, name := range SecretNames(cfg) {
		if err := p.secrets.EnsureSecret(ctx, cfg.Namespace, name, map[string][]byte{SecretKey: key}); err != nil {
			return err
		}
	}

	return nil
}

func (p *Provisioner) ensureCredentialFile(ctx context.Context, cfg configs.Config) error {
	path := cfg.CredentialFile()

	info, err := p.fs.Stat(path)
	switch {
	case err == nil:
		log.Info().Msgf("reusing service account key %s created %s", path, humanize.Time(info.ModTime()))
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("unable to check service account key %s: %w", path, err)
	}

	helper := cfg.ServiceAccountHelper()
	if ok, _ := afero.Exists(p.fs, helper); !ok {
		return common.Fatalf("service account helper %s not found, check --root-dir", helper)
	}
	if err := p.fs.MkdirAll(cfg.ServiceAccountsDir(), 0o755); err != nil {
		return fmt.Errorf("unable to create %s: %w", cfg.ServiceAccountsDir(), err)
	}

	log.Info().Msgf("creating service account %s in project %s", configs.ServiceAccountID, cfg.ProjectID)
	res := p.runner.Run(ctx, shell.Command{
		Name:  helper,
		Args:  []string{"--env", configs.ServiceAccountEnv, "--dir", cfg.ServiceAccountsDir()},
		Stdin: strings.NewReader("y\n"),
		Env:   []string{"PROJECT_ID=" + cfg.ProjectID},
		Dir:   cfg.RootDir,
	})
	if err := res.Error(); err != nil {
		return fmt.Errorf("unable to create service account: %w", err)
	}

	if ok, _ := afero.Exists(p.fs, path); !ok {
		return fmt.Errorf("service account helper did not write %s", path)
	}

	return nil
}

// authorize adds member to the organization sync authorization list. The
// update carries the etag of the read so a concurrent change is rejected.
func (p *Provisioner) authorize(ctx context.Context, org, member string) error {
	current, err := p.auth.GetSyncAuthorization(ctx, org)
	if err != nil {
		return err
	}

	if slices.Contains(current.Identities, member) {
		log.Info().Msgf("%s is already allowed to synchronize %s", member, org)
		return nil
	}

	current.Identities = append(slices.Clone(current.Identities), member)
	if _, err := p.auth.SetSyncAuthorization(ctx, org, current); err != nil {
		if errors.Is(err, platform.ErrConcurrentModification) {
			return common.Fatal(err)
		}
		return err
	}
	log.Info().Msgf("allowed %s to synchronize %s", member, org)

	return nil
}

// SecretNames lists the secrets the runtime components read the key from.
func SecretNames(cfg configs.Config) []string {
	orgEnv := fmt.Sprintf("%s-%s", cfg.Org, cfg.Env)

	return []string{
		"apigee-logger-svc-account",
		"apigee-metrics-svc-account",
		"apigee-cassandra-backup-svc-account",
		"apigee-cassandra-restore-svc-account",
		"apigee-mart-svc-account-" + cfg.Org,
		"apigee-watcher-svc-account-" + cfg.Org,
		"apigee-udca-svc-account-" + orgEnv,
		"apigee-synchronizer-svc-account-" + orgEnv,
		"apigee-runtime-svc-account-" + orgEnv,
	}
}
