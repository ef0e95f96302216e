package gcloud

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/konstructio/hybrid-setup/internal/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	result shell.Result
	calls  []shell.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd shell.Command) shell.Result {
	f.calls = append(f.calls, cmd)
	res := f.result
	res.Command = cmd
	return res
}

func TestClient_CurrentProject(t *testing.T) {
	tests := []struct {
		name    string
		result  shell.Result
		want    string
		wantErr bool
	}{
		{
			name:   "project configured",
			result: shell.Result{Outcome: shell.Succeeded, Stdout: "my-org\n"},
			want:   "my-org",
		},
		{
			name:   "project unset",
			result: shell.Result{Outcome: shell.Succeeded, Stdout: "(unset)\n"},
			want:   "",
		},
		{
			name:    "gcloud fails",
			result:  shell.Result{Outcome: shell.ExitedNonZero, ExitCode: 1, Stderr: "boom"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{result: tt.result}
			got, err := New(runner).CurrentProject(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.Len(t, runner.calls, 1)
			assert.Equal(t, "gcloud config get-value project", runner.calls[0].String())
		})
	}
}

func TestClient_TokenSource(t *testing.T) {
	runner := &fakeRunner{result: shell.Result{Outcome: shell.Succeeded, Stdout: "ya29.token\n"}}
	ts := New(runner).TokenSource(context.Background())

	for range 2 {
		token, err := ts.Token()
		require.NoError(t, err)
		assert.Equal(t, "ya29.token", token.AccessToken)
	}
	assert.Len(t, runner.calls, 1, "token is reused until it expires")
}

func TestClient_AccessToken_notLoggedIn(t *testing.T) {
	runner := &fakeRunner{result: shell.Result{Outcome: shell.FailedToStart, Err: assert.AnError}}
	_, err := New(runner).AccessToken(context.Background())
	assert.ErrorContains(t, err, "gcloud auth login")
}

func serviceAccountKey(t *testing.T, tokenURI string) []byte {
	t.Helper()

	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(pk)})

	data, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     "my-org",
		"private_key_id": "1",
		"private_key":    string(keyPEM),
		"client_email":   "apigee-non-prod@my-org.iam.gserviceaccount.com",
		"token_uri":      tokenURI,
	})
	require.NoError(t, err)

	return data
}

func TestValidateKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.sa","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	key, err := ValidateKey(context.Background(), serviceAccountKey(t, srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "apigee-non-prod@my-org.iam.gserviceaccount.com", key.Email)
	assert.Equal(t, "serviceAccount:apigee-non-prod@my-org.iam.gserviceaccount.com", key.Member())
}

func TestValidateKey_rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	_, err := ValidateKey(context.Background(), serviceAccountKey(t, srv.URL))
	assert.Error(t, err)
}

func TestValidateKey_malformed(t *testing.T) {
	_, err := ValidateKey(context.Background(), []byte("not json"))
	assert.ErrorContains(t, err, "invalid service account key")
}
