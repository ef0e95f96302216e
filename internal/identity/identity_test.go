package identity

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/konstructio/hybrid-setup/configs"
	"github.com/konstructio/hybrid-setup/internal/common"
	"github.com/konstructio/hybrid-setup/internal/gcloud"
	"github.com/konstructio/hybrid-setup/internal/platform"
	"github.com/konstructio/hybrid-setup/internal/shell"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyJSON = `{"type":"service_account","client_email":"apigee-non-prod@acme.iam.gserviceaccount.com"}`

type fakeRunner struct {
	fs    afero.Fs
	write string
	calls []shell.Command
	stdin []string
}

func (f *fakeRunner) Run(_ context.Context, cmd shell.Command) shell.Result {
	f.calls = append(f.calls, cmd)
	if cmd.Stdin != nil {
		b, _ := io.ReadAll(cmd.Stdin)
		f.stdin = append(f.stdin, string(b))
	}
	if f.write != "" {
		_ = afero.WriteFile(f.fs, f.write, []byte(keyJSON), 0o600)
	}

	return shell.Result{Command: cmd, Outcome: shell.Succeeded}
}

type fakeAuth struct {
	current platform.SyncAuthorization
	setErr  error
	sets    []platform.SyncAuthorization
}

func (f *fakeAuth) GetSyncAuthorization(context.Context, string) (platform.SyncAuthorization, error) {
	return f.current, nil
}

func (f *fakeAuth) SetSyncAuthorization(_ context.Context, _ string, sa platform.SyncAuthorization) (platform.SyncAuthorization, error) {
	f.sets = append(f.sets, sa)
	return sa, f.setErr
}

type fakeSecrets struct {
	names []string
	data  map[string][]byte
}

func (f *fakeSecrets) EnsureSecret(_ context.Context, namespace, name string, data map[string][]byte) error {
	f.names = append(f.names, namespace+"/"+name)
	f.data = data
	return nil
}

func validKey(_ context.Context, key []byte) (gcloud.ServiceAccountKey, error) {
	return gcloud.ServiceAccountKey{Email: "apigee-non-prod@acme.iam.gserviceaccount.com"}, nil
}

func testConfig() configs.Config {
	return configs.Config{
		Org:       "acme",
		Env:       "prod",
		Namespace: "apigee",
		ProjectID: "acme",
		RootDir:   "/work",
	}
}

func TestProvisioner_existingKeySkipsCreation(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig()
	require.NoError(t, afero.WriteFile(fs, cfg.CredentialFile(), []byte(keyJSON), 0o600))

	runner := &fakeRunner{fs: fs}
	auth := &fakeAuth{current: platform.SyncAuthorization{Identities: []string{"serviceAccount:other@x"}, Etag: "BwY1"}}
	secrets := &fakeSecrets{}

	err := New(fs, runner, auth, secrets, WithKeyValidator(validKey)).Provision(context.Background(), cfg)
	require.NoError(t, err)

	assert.Empty(t, runner.calls, "no identity is created when the key file exists")
	require.Len(t, auth.sets, 1)
	assert.Equal(t, "BwY1", auth.sets[0].Etag)
	assert.Equal(t, []string{"serviceAccount:other@x", "serviceAccount:apigee-non-prod@acme.iam.gserviceaccount.com"}, auth.sets[0].Identities)

	assert.Equal(t, []string{
		"apigee/apigee-logger-svc-account",
		"apigee/apigee-metrics-svc-account",
		"apigee/apigee-cassandra-backup-svc-account",
		"apigee/apigee-cassandra-restore-svc-account",
		"apigee/apigee-mart-svc-account-acme",
		"apigee/apigee-watcher-svc-account-acme",
		"apigee/apigee-udca-svc-account-acme-prod",
		"apigee/apigee-synchronizer-svc-account-acme-prod",
		"apigee/apigee-runtime-svc-account-acme-prod",
	}, secrets.names)
	assert.Equal(t, keyJSON, string(secrets.data[SecretKey]))
}

func TestProvisioner_createsServiceAccount(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig()
	require.NoError(t, afero.WriteFile(fs, cfg.ServiceAccountHelper(), []byte("#!/bin/sh\n"), 0o755))

	runner := &fakeRunner{fs: fs, write: cfg.CredentialFile()}
	auth := &fakeAuth{}

	err := New(fs, runner, auth, &fakeSecrets{}, WithKeyValidator(validKey)).Provision(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/work/tools/create-service-account --env non-prod --dir /work/service-accounts", runner.calls[0].String())
	assert.Equal(t, []string{"y\n"}, runner.stdin)
}

func TestProvisioner_failures(t *testing.T) {
	tests := []struct {
		name      string
		helper    bool
		key       bool
		validate  KeyValidator
		auth      *fakeAuth
		wantFatal bool
		contains  string
	}{
		{
			name:      "helper missing",
			wantFatal: true,
			contains:  "service account helper",
		},
		{
			name:     "helper does not write the key",
			helper:   true,
			contains: "did not write",
		},
		{
			name: "invalid key",
			key:  true,
			validate: func(context.Context, []byte) (gcloud.ServiceAccountKey, error) {
				return gcloud.ServiceAccountKey{}, assert.AnError
			},
			wantFatal: true,
			contains:  "not usable",
		},
		{
			name:      "concurrent sync authorization update",
			key:       true,
			auth:      &fakeAuth{setErr: platform.ErrConcurrentModification},
			wantFatal: true,
			contains:  "modified concurrently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			cfg := testConfig()
			if tt.helper {
				require.NoError(t, afero.WriteFile(fs, cfg.ServiceAccountHelper(), []byte("#!/bin/sh\n"), 0o755))
			}
			if tt.key {
				require.NoError(t, afero.WriteFile(fs, cfg.CredentialFile(), []byte(keyJSON), 0o600))
			}
			validate := tt.validate
			if validate == nil {
				validate = validKey
			}
			auth := tt.auth
			if auth == nil {
				auth = &fakeAuth{}
			}
			secrets := &fakeSecrets{}

			err := New(fs, &fakeRunner{fs: fs}, auth, secrets, WithKeyValidator(validate)).Provision(context.Background(), cfg)
			require.Error(t, err)
			assert.Equal(t, tt.wantFatal, common.IsFatal(err))
			assert.Contains(t, err.Error(), tt.contains)
			assert.Empty(t, secrets.names)
		})
	}
}

func TestProvisioner_alreadyAuthorized(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := testConfig()
	require.NoError(t, afero.WriteFile(fs, cfg.CredentialFile(), []byte(keyJSON), 0o600))
	auth := &fakeAuth{current: platform.SyncAuthorization{
		Identities: []string{"serviceAccount:apigee-non-prod@acme.iam.gserviceaccount.com"},
	}}

	err := New(fs, &fakeRunner{fs: fs}, auth, &fakeSecrets{}, WithKeyValidator(validKey)).Provision(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, auth.sets)
}

type deniedFs struct {
	afero.Fs
	path string
}

func (d deniedFs) Stat(name string) (os.FileInfo, error) {
	if name == d.path {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrPermission}
	}
	return d.Fs.Stat(name)
}

func TestProvisioner_unreadableKeyIsNotRecreated(t *testing.T) {
	mem := afero.NewMemMapFs()
	cfg := testConfig()
	require.NoError(t, afero.WriteFile(mem, cfg.ServiceAccountHelper(), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, afero.WriteFile(mem, cfg.CredentialFile(), []byte(keyJSON), 0o600))

	runner := &fakeRunner{fs: mem}
	auth := &fakeAuth{}
	fs := deniedFs{Fs: mem, path: cfg.CredentialFile()}

	err := New(fs, runner, auth, &fakeSecrets{}, WithKeyValidator(validKey)).Provision(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Empty(t, runner.calls, "the helper must not create a second key")
	assert.Empty(t, auth.sets)
}
