package certs

import (
	"context"
	"testing"
	"time"

	cmv1 "github.com/cert-manager/cert-manager/pkg/apis/certmanager/v1"
	"github.com/konstructio/hybrid-setup/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/runtime"
)

type recordingApplier struct {
	objects []runtime.Object
	err     error
}

func (r *recordingApplier) ApplyTyped(_ context.Context, obj runtime.Object) error {
	r.objects = append(r.objects, obj)
	return r.err
}

func TestCertificate(t *testing.T) {
	r := RequestFromConfig(configs.Config{
		Namespace:     "apigee",
		Org:           "acme",
		EnvGroup:      "public",
		IngressDomain: "api.acme.dev",
	})

	cert := Certificate(r)

	assert.Equal(t, "cert-manager.io/v1", cert.APIVersion)
	assert.Equal(t, "Certificate", cert.Kind)
	assert.Equal(t, "acme-public", cert.Name)
	assert.Equal(t, "apigee", cert.Namespace)
	assert.Equal(t, "acme-public", cert.Spec.SecretName)
	assert.Equal(t, "api.acme.dev", cert.Spec.CommonName)
	assert.Equal(t, []string{"api.acme.dev"}, cert.Spec.DNSNames)
	assert.Equal(t, 2160*time.Hour, cert.Spec.Duration.Duration)
	assert.Equal(t, DefaultIssuer, cert.Spec.IssuerRef.Name)
	assert.Equal(t, "ClusterIssuer", cert.Spec.IssuerRef.Kind)
}

func TestIssue(t *testing.T) {
	applier := &recordingApplier{}
	r := Request{Namespace: "apigee", Org: "acme", EnvGroup: "public", Hostname: "api.acme.dev", Issuer: "custom"}

	require.NoError(t, Issue(context.Background(), applier, r))
	require.Len(t, applier.objects, 1)

	cert, ok := applier.objects[0].(*cmv1.Certificate)
	require.True(t, ok)
	assert.Equal(t, "custom", cert.Spec.IssuerRef.Name)
}

func TestIssue_error(t *testing.T) {
	applier := &recordingApplier{err: assert.AnError}
	err := Issue(context.Background(), applier, Request{Org: "acme", EnvGroup: "public"})
	assert.ErrorIs(t, err, assert.AnError)
}
