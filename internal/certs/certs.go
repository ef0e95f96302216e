/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package certs

import (
	"context"
	"fmt"
	"time"

	cmv1 "github.com/cert-manager/cert-manager/pkg/apis/certmanager/v1"
	cmmeta "github.com/cert-manager/cert-manager/pkg/apis/meta/v1"
	"github.com/konstructio/hybrid-setup/configs"
	"github.com/rs/zerolog/log"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

const (
	DefaultIssuer = "apigee-ca-issuer"

	certificateDuration = 2160 * time.Hour
)

type Applier interface {
	ApplyTyped(ctx context.Context, obj runtime.Object) error
}

// Request holds the values substituted into the ingress certificate.
type Request struct {
	Namespace string
	Org       string
	EnvGroup  string
	Hostname  string
	Issuer    string
}

func RequestFromConfig(cfg configs.Config) Request {
	return Request{
		Namespace: cfg.Namespace,
		Org:       cfg.Org,
		EnvGroup:  cfg.EnvGroup,
		Hostname:  cfg.IngressDomain,
		Issuer:    DefaultIssuer,
	}
}

// Name is used for both the Certificate and the secret it produces.
func (r Request) Name() string {
	return fmt.Sprintf("%s-%s", r.Org, r.EnvGroup)
}

// Certificate builds the cert-manager Certificate for the ingress gateway.
func Certificate(r Request) *cmv1.Certificate {
	issuer := r.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	return &cmv1.Certificate{
		TypeMeta: metav1.TypeMeta{
			APIVersion: cmv1.SchemeGroupVersion.String(),
			Kind:       cmv1.CertificateKind,
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      r.Name(),
			Namespace: r.Namespace,
		},
		Spec: cmv1.CertificateSpec{
			SecretName: r.Name(),
			CommonName: r.Hostname,
			DNSNames:   []string{r.Hostname},
			Duration:   &metav1.Duration{Duration: certificateDuration},
			IssuerRef: cmmeta.ObjectReference{
				Name:  issuer,
				Kind:  cmv1.ClusterIssuerKind,
				Group: "cert-manager.io",
			},
		},
	}
}

// Issue submits the certificate. Issuance itself is not awaited.
func Issue(ctx context.Context, applier Applier, r Request) error {
	cert := Certificate(r)
	if err := applier.ApplyTyped(ctx, cert); err != nil {
		return fmt.Errorf("unable to request certificate %s: %w", cert.Name, err)
	}
	log.Info().Msgf("requested certificate %s/%s for %s", cert.Namespace, cert.Name, r.Hostname)

	return nil
}
