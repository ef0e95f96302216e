/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package k8s

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	goyaml "gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
	"sigs.k8s.io/kustomize/api/krusty"
	"sigs.k8s.io/kustomize/kyaml/filesys"
	"sigs.k8s.io/yaml"
)

// ApplyPath applies a single manifest file, or the kustomize build of a
// directory. Namespaced objects without a namespace land in namespace.
func (kcl *KubernetesClient) ApplyPath(ctx context.Context, namespace, path string) error {
	docs, err := ReadManifests(path)
	if err != nil {
		return err
	}

	log.Info().Msgf("applying %d objects from %s", len(docs), path)
	return kcl.ApplyManifests(ctx, namespace, docs)
}

// ApplyManifests decodes yaml documents and applies them in order.
func (kcl *KubernetesClient) ApplyManifests(ctx context.Context, namespace string, docs [][]byte) error {
	objs, err := DecodeManifests(docs)
	if err != nil {
		return err
	}

	return kcl.ApplyObjects(ctx, namespace, objs)
}

// ApplyTyped converts a typed object, which must carry its TypeMeta, and applies it.
func (kcl *KubernetesClient) ApplyTyped(ctx context.Context, obj runtime.Object) error {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return fmt.Errorf("unable to convert object: %w", err)
	}

	return kcl.ApplyObjects(ctx, "", []*unstructured.Unstructured{{Object: content}})
}

// ApplyObjects applies objects to the cluster with server-side apply.
func (kcl *KubernetesClient) ApplyObjects(ctx context.Context, namespace string, objs []*unstructured.Unstructured) error {
	for _, obj := range objs {
		dr, err := kcl.resourceFor(obj, namespace)
		if err != nil {
			return err
		}

		data, err := json.Marshal(obj.Object)
		if err != nil {
			return fmt.Errorf("unable to marshal %s %s: %w", obj.GetKind(), obj.GetName(), err)
		}

		// Create or Update the object with server-side apply
		force := true
		_, err = dr.Patch(ctx, obj.GetName(), types.ApplyPatchType, data, metav1.PatchOptions{
			FieldManager: FieldManager,
			Force:        &force,
		})
		if err != nil {
			return fmt.Errorf("error applying %s %s: %w", obj.GetKind(), obj.GetName(), err)
		}
		log.Info().Msgf("applied %s %s", obj.GetKind(), obj.GetName())
	}

	return nil
}

func (kcl *KubernetesClient) resourceFor(obj *unstructured.Unstructured, namespace string) (dynamic.ResourceInterface, error) {
	gvk := obj.GroupVersionKind()

	mapping, err := kcl.Mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if meta.IsNoMatchError(err) {
		// the kind may come from a CRD applied earlier in this run
		if rm, ok := kcl.Mapper.(meta.ResettableRESTMapper); ok {
			rm.Reset()
			mapping, err = kcl.Mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("unable to find resource for %s: %w", gvk.String(), err)
	}

	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return kcl.Dynamic.Resource(mapping.Resource), nil
	}

	if obj.GetNamespace() == "" {
		obj.SetNamespace(namespace)
	}
	return kcl.Dynamic.Resource(mapping.Resource).Namespace(obj.GetNamespace()), nil
}

// ReadManifests returns the yaml documents of a file, or of the kustomize
// build of a directory.
func ReadManifests(path string) ([][]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read manifests: %w", err)
	}

	if info.IsDir() {
		return KustomizeBuild(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read manifests: %w", err)
	}

	return SplitYAML(data)
}

// KustomizeBuild builds the kustomization in dir and returns one yaml
// document per resource.
func KustomizeBuild(dir string) ([][]byte, error) {
	k := krusty.MakeKustomizer(krusty.MakeDefaultOptions())
	resMap, err := k.Run(filesys.MakeFsOnDisk(), dir)
	if err != nil {
		return nil, fmt.Errorf("kustomize build of %s failed: %w", dir, err)
	}

	docs := make([][]byte, 0, resMap.Size())
	for _, r := range resMap.Resources() {
		y, err := r.AsYAML()
		if err != nil {
			return nil, fmt.Errorf("failed to get YAML for resource %s/%s: %w", r.GetGvk().Kind, r.GetName(), err)
		}
		docs = append(docs, y)
	}

	return docs, nil
}

// SplitYAML takes a separated (---) yaml stream and returns its non-empty documents.
func SplitYAML(data []byte) ([][]byte, error) {
	dec := goyaml.NewDecoder(bytes.NewReader(data))

	var res [][]byte
	for {
		var node goyaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid yaml: %w", err)
		}
		if len(node.Content) == 0 || node.Content[0].Kind == goyaml.ScalarNode && node.Content[0].Tag == "!!null" {
			continue
		}

		valueBytes, err := goyaml.Marshal(&node)
		if err != nil {
			return nil, err
		}
		res = append(res, valueBytes)
	}

	return res, nil
}

// DecodeManifests turns yaml documents into unstructured objects.
func DecodeManifests(docs [][]byte) ([]*unstructured.Unstructured, error) {
	objs := make([]*unstructured.Unstructured, 0, len(docs))
	for _, doc := range docs {
		var content map[string]interface{}
		if err := yaml.Unmarshal(doc, &content); err != nil {
			return nil, fmt.Errorf("yaml unmarshal: %w", err)
		}
		if len(content) == 0 {
			continue
		}

		obj := &unstructured.Unstructured{Object: content}
		if obj.GetKind() == "" || obj.GetAPIVersion() == "" {
			return nil, fmt.Errorf("object %q has no kind or apiVersion", obj.GetName())
		}
		objs = append(objs, obj)
	}

	return objs, nil
}
