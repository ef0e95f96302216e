package k8s

import (
	"context"
	"testing"

	"github.com/konstructio/hybrid-setup/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	apiextensionsfake "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset/fake"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	fakediscovery "k8s.io/client-go/discovery/fake"
	"k8s.io/client-go/kubernetes/fake"
)

func TestKubernetesClient_NamespaceExists(t *testing.T) {
	kcl := &KubernetesClient{
		Clientset: fake.NewSimpleClientset(&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "cert-manager"}}),
	}

	ok, err := kcl.NamespaceExists(context.Background(), "cert-manager")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kcl.NamespaceExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKubernetesClient_CRDExists(t *testing.T) {
	kcl := &KubernetesClient{
		APIExtensions: apiextensionsfake.NewSimpleClientset(&apiextensionsv1.CustomResourceDefinition{
			ObjectMeta: metav1.ObjectMeta{Name: "certificates.cert-manager.io"},
		}),
	}

	ok, err := kcl.CRDExists(context.Background(), "certificates.cert-manager.io")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kcl.CRDExists(context.Background(), "issuers.cert-manager.io")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKubernetesClient_DetectPlatform(t *testing.T) {
	tests := []struct {
		name      string
		resources []*metav1.APIResourceList
		want      configs.PlatformKind
	}{
		{
			name:      "plain kubernetes",
			resources: []*metav1.APIResourceList{{GroupVersion: "apps/v1"}},
			want:      configs.PlatformKubernetes,
		},
		{
			name: "openshift",
			resources: []*metav1.APIResourceList{
				{GroupVersion: "apps/v1"},
				{GroupVersion: "security.openshift.io/v1"},
			},
			want: configs.PlatformOpenShift,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientset := fake.NewSimpleClientset()
			clientset.Resources = tt.resources
			kcl := &KubernetesClient{Discovery: clientset.Discovery().(*fakediscovery.FakeDiscovery)}

			got, err := kcl.DetectPlatform(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKubernetesClient_EnsureSecret(t *testing.T) {
	clientset := fake.NewSimpleClientset()
	kcl := &KubernetesClient{Clientset: clientset}
	ctx := context.Background()

	require.NoError(t, kcl.EnsureSecret(ctx, "apigee", "apigee-logger-svc-account", map[string][]byte{"client_secret.json": []byte("v1")}))
	require.NoError(t, kcl.EnsureSecret(ctx, "apigee", "apigee-logger-svc-account", map[string][]byte{"client_secret.json": []byte("v2")}))

	secret, err := clientset.CoreV1().Secrets("apigee").Get(ctx, "apigee-logger-svc-account", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), secret.Data["client_secret.json"])
}
