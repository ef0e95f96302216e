package k8s

import (
	"context"
	"fmt"
	"time"

	"github.com/konstructio/hybrid-setup/internal/common"
	"github.com/rs/zerolog/log"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Resource names a single namespaced custom resource.
type Resource struct {
	GVR       schema.GroupVersionResource
	Kind      string
	Namespace string
	Name      string
}

func (r Resource) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.Name)
}

// WaitForDeploymentsAvailable blocks until every named deployment reports the
// Available condition. Exceeding timeout is fatal.
func (kcl *KubernetesClient) WaitForDeploymentsAvailable(ctx context.Context, namespace string, names []string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, name := range names {
		log.Info().Msgf("waiting for deployment %s/%s to be available. This could take up to %s.", namespace, name, timeout)

		err := wait.PollUntilContextCancel(waitCtx, kcl.pollInterval(), true, func(ctx context.Context) (bool, error) {
			deployment, err := kcl.Clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
			if apierrors.IsNotFound(err) {
				return false, nil
			}
			if err != nil {
				return false, fmt.Errorf("unable to get deployment %s/%s: %w", namespace, name, err)
			}

			return deploymentAvailable(deployment), nil
		})
		if ctx.Err() != nil {
			return fmt.Errorf("stopped waiting for deployment %s/%s: %w", namespace, name, ctx.Err())
		}
		if wait.Interrupted(err) {
			return common.Fatalf("deployment %s/%s was not available within %s", namespace, name, timeout)
		}
		if err != nil {
			return err
		}
		log.Info().Msgf("deployment %s/%s is available", namespace, name)
	}

	return nil
}

func deploymentAvailable(d *appsv1.Deployment) bool {
	for _, c := range d.Status.Conditions {
		if c.Type == appsv1.DeploymentAvailable {
			return c.Status == corev1.ConditionTrue
		}
	}

	return false
}

// WaitForResourcesState blocks until every resource reports status.state ==
// state. Exceeding timeout is fatal.
func (kcl *KubernetesClient) WaitForResourcesState(ctx context.Context, resources []Resource, state string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, r := range resources {
		log.Info().Msgf("waiting for %s to be %s. This could take up to %s.", r, state, timeout)

		current := ""
		err := wait.PollUntilContextCancel(waitCtx, kcl.pollInterval(), true, func(ctx context.Context) (bool, error) {
			obj, err := kcl.Dynamic.Resource(r.GVR).Namespace(r.Namespace).Get(ctx, r.Name, metav1.GetOptions{})
			if apierrors.IsNotFound(err) {
				return false, nil
			}
			if err != nil {
				return false, fmt.Errorf("unable to get %s: %w", r, err)
			}

			current, _, err = unstructured.NestedString(obj.Object, "status", "state")
			if err != nil {
				return false, fmt.Errorf("unexpected status of %s: %w", r, err)
			}
			log.Debug().Msgf("%s state is %q", r, current)

			return current == state, nil
		})
		if ctx.Err() != nil {
			return fmt.Errorf("stopped waiting for %s: %w", r, ctx.Err())
		}
		if wait.Interrupted(err) {
			return common.Fatalf("%s did not reach state %q within %s (last state %q)", r, state, timeout, current)
		}
		if err != nil {
			return err
		}
		log.Info().Msgf("%s is %s", r, state)
	}

	return nil
}
