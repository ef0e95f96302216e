package k8s

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
)

const twoDocs = `apiVersion: v1
kind: Namespace
metadata:
  name: apigee
---
# empty document
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: settings
data:
  key: value
`

func TestSplitYAML(t *testing.T) {
	docs, err := SplitYAML([]byte(twoDocs))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	objs, err := DecodeManifests(docs)
	require.NoError(t, err)
	assert.Equal(t, "Namespace", objs[0].GetKind())
	assert.Equal(t, "settings", objs[1].GetName())
}

func TestSplitYAML_invalid(t *testing.T) {
	_, err := SplitYAML([]byte("key: [unclosed"))
	assert.Error(t, err)
}

func TestDecodeManifests_missingKind(t *testing.T) {
	_, err := DecodeManifests([][]byte{[]byte("metadata:\n  name: x\n")})
	assert.ErrorContains(t, err, "no kind or apiVersion")
}

func TestReadManifests(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resources.yaml"), []byte(twoDocs), 0o600))

	docs, err := ReadManifests(filepath.Join(dir, "resources.yaml"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kustomization.yaml"), []byte(`apiVersion: kustomize.config.k8s.io/v1beta1
kind: Kustomization
namespace: runtime
resources:
- resources.yaml
`), 0o600))

	docs, err = ReadManifests(dir)
	require.NoError(t, err)
	objs, err := DecodeManifests(docs)
	require.NoError(t, err)
	require.Len(t, objs, 2)

	for _, obj := range objs {
		if obj.GetKind() == "ConfigMap" {
			assert.Equal(t, "runtime", obj.GetNamespace())
		}
	}

	_, err = ReadManifests(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestApplyObjects_unknownKind(t *testing.T) {
	kcl := &KubernetesClient{
		Dynamic: dynamicfake.NewSimpleDynamicClient(runtime.NewScheme()),
		Mapper:  meta.NewDefaultRESTMapper([]schema.GroupVersion{{Version: "v1"}}),
	}

	objs, err := DecodeManifests([][]byte{[]byte("apiVersion: apigee.cloud.google.com/v1alpha1\nkind: ApigeeRedis\nmetadata:\n  name: default\n")})
	require.NoError(t, err)

	err = kcl.ApplyObjects(context.Background(), "apigee", objs)
	assert.ErrorContains(t, err, "unable to find resource")
}

func TestResourceFor_defaultsNamespace(t *testing.T) {
	mapper := meta.NewDefaultRESTMapper([]schema.GroupVersion{{Version: "v1"}})
	mapper.Add(schema.GroupVersionKind{Version: "v1", Kind: "ConfigMap"}, meta.RESTScopeNamespace)
	mapper.Add(schema.GroupVersionKind{Version: "v1", Kind: "Namespace"}, meta.RESTScopeRoot)

	kcl := &KubernetesClient{
		Dynamic: dynamicfake.NewSimpleDynamicClient(runtime.NewScheme()),
		Mapper:  mapper,
	}

	docs, err := SplitYAML([]byte(twoDocs))
	require.NoError(t, err)
	objs, err := DecodeManifests(docs)
	require.NoError(t, err)

	for _, obj := range objs {
		_, err := kcl.resourceFor(obj, "apigee")
		require.NoError(t, err)
	}
	assert.Empty(t, objs[0].GetNamespace(), "cluster scoped objects keep an empty namespace")
	assert.Equal(t, "apigee", objs[1].GetNamespace())
}
