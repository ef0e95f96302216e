package k8s

import (
	"context"
	"fmt"

	"github.com/konstructio/hybrid-setup/configs"
	"github.com/rs/zerolog/log"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// openShiftGroup is only served by OpenShift clusters.
const openShiftGroup = "security.openshift.io"

func (kcl *KubernetesClient) NamespaceExists(ctx context.Context, name string) (bool, error) {
	_, err := kcl.Clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("unable to get namespace %s: %w", name, err)
	}

	return true, nil
}

// CRDExists reports whether the CustomResourceDefinition name (plural.group) is installed.
func (kcl *KubernetesClient) CRDExists(ctx context.Context, name string) (bool, error) {
	_, err := kcl.APIExtensions.ApiextensionsV1().CustomResourceDefinitions().Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("unable to get CustomResourceDefinition %s: %w", name, err)
	}

	return true, nil
}

// DetectPlatform probes the API groups served by the cluster.
func (kcl *KubernetesClient) DetectPlatform(_ context.Context) (configs.PlatformKind, error) {
	groups, err := kcl.Discovery.ServerGroups()
	if err != nil {
		return configs.PlatformUnknown, fmt.Errorf("unable to list API groups: %w", err)
	}

	for _, g := range groups.Groups {
		if g.Name == openShiftGroup {
			log.Info().Msg("OpenShift cluster detected")
			return configs.PlatformOpenShift, nil
		}
	}

	return configs.PlatformKubernetes, nil
}

// EnsureSecret creates the secret, or overwrites its data when it already exists.
func (kcl *KubernetesClient) EnsureSecret(ctx context.Context, namespace, name string, data map[string][]byte) error {
	secrets := kcl.Clientset.CoreV1().Secrets(namespace)

	existing, err := secrets.Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		secret := &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
			Type:       corev1.SecretTypeOpaque,
			Data:       data,
		}
		if _, err := secrets.Create(ctx, secret, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("unable to create secret %s/%s: %w", namespace, name, err)
		}
		log.Info().Msgf("created secret %s in namespace %s", name, namespace)
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to get secret %s/%s: %w", namespace, name, err)
	}

	existing.Data = data
	if _, err := secrets.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("unable to update secret %s/%s: %w", namespace, name, err)
	}
	log.Info().Msgf("updated secret %s in namespace %s", name, namespace)

	return nil
}
