/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package k8s

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	apiextensionsclientset "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

const (
	FieldManager = "hybrid-setup"

	defaultPollInterval = 5 * time.Second
)

// KubernetesClient bundles every client the setup phases use against a cluster.
type KubernetesClient struct {
	Clientset      kubernetes.Interface
	Dynamic        dynamic.Interface
	Discovery      discovery.DiscoveryInterface
	APIExtensions  apiextensionsclientset.Interface
	Mapper         meta.RESTMapper
	RestConfig     *rest.Config
	KubeConfigPath string
	PollInterval   time.Duration
}

// CreateKubeConfig returns a KubernetesClient built from the kubeconfig at
// kubeConfigPath, $KUBECONFIG or ~/.kube/config, in that order.
func CreateKubeConfig(kubeConfigPath string) (*KubernetesClient, error) {
	kubeconfig := returnKubeConfigPath(kubeConfigPath)
	log.Debug().Msgf("setting kubeconfig to: %s", kubeconfig)

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("unable to load kubeconfig file - checked path: %s: %w", kubeconfig, err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create kubernetes clientset: %w", err)
	}

	dyn, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create dynamic client: %w", err)
	}

	dc, err := discovery.NewDiscoveryClientForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create discovery client: %w", err)
	}

	apiext, err := apiextensionsclientset.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create apiextensions client: %w", err)
	}

	return &KubernetesClient{
		Clientset:      clientset,
		Dynamic:        dyn,
		Discovery:      dc,
		APIExtensions:  apiext,
		Mapper:         restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(dc)),
		RestConfig:     config,
		KubeConfigPath: kubeconfig,
		PollInterval:   defaultPollInterval,
	}, nil
}

func (kcl *KubernetesClient) pollInterval() time.Duration {
	if kcl.PollInterval <= 0 {
		return defaultPollInterval
	}

	return kcl.PollInterval
}

// returnKubeConfigPath generates the path in the filesystem to kubeconfig
func returnKubeConfigPath(kubeConfigPath string) string {
	var kubeconfig string
	// We expect kubeconfig to be available at ~/.kube/config
	// However, sometimes some people may use the env var $KUBECONFIG
	// to set the path to the active one - we will switch on that here
	//
	// It's also possible to pass in a path directly
	switch {
	case kubeConfigPath != "":
		kubeconfig = kubeConfigPath
	case os.Getenv("KUBECONFIG") != "":
		kubeconfig = os.Getenv("KUBECONFIG")
	default:
		kubeconfig = filepath.Join(homedir.HomeDir(), ".kube", "config")
	}

	return kubeconfig
}
