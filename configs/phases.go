package configs

import "strings"

// Phase is one of the independently selectable setup steps. The numeric order
// is the execution order.
type Phase uint8

const (
	PhaseConfigureDirectoryNames Phase = iota
	PhaseFillValues
	PhaseServiceAccountAndSecrets
	PhaseIngressCerts
	PhaseApplyConfiguration
)

// AllPhases lists every phase in execution order.
var AllPhases = []Phase{
	PhaseConfigureDirectoryNames,
	PhaseFillValues,
	PhaseServiceAccountAndSecrets,
	PhaseIngressCerts,
	PhaseApplyConfiguration,
}

// Flag is the boolean command line flag selecting the phase.
func (p Phase) Flag() string {
	switch p {
	case PhaseConfigureDirectoryNames:
		return "configure-directory-names"
	case PhaseFillValues:
		return "fill-values"
	case PhaseServiceAccountAndSecrets:
		return "create-gcp-sa-and-secrets"
	case PhaseIngressCerts:
		return "create-ingress-tls-certs"
	case PhaseApplyConfiguration:
		return "apply-configuration"
	default:
		return ""
	}
}

func (p Phase) String() string {
	switch p {
	case PhaseConfigureDirectoryNames:
		return "Configure directory names"
	case PhaseFillValues:
		return "Fill values"
	case PhaseServiceAccountAndSecrets:
		return "Create service account and secrets"
	case PhaseIngressCerts:
		return "Create ingress TLS certificates"
	case PhaseApplyConfiguration:
		return "Apply configuration"
	default:
		return "unknown phase"
	}
}

// PhaseSet is an unordered selection of phases.
type PhaseSet uint8

func NewPhaseSet(phases ...Phase) PhaseSet {
	var s PhaseSet
	for _, p := range phases {
		s = s.With(p)
	}

	return s
}

func (s PhaseSet) With(p Phase) PhaseSet {
	return s | 1<<p
}

func (s PhaseSet) Has(p Phase) bool {
	return s&(1<<p) != 0
}

func (s PhaseSet) Empty() bool {
	return s == 0
}

// Ordered returns the selected phases in execution order.
func (s PhaseSet) Ordered() []Phase {
	var out []Phase
	for _, p := range AllPhases {
		if s.Has(p) {
			out = append(out, p)
		}
	}

	return out
}

func (s PhaseSet) String() string {
	names := make([]string, 0, len(AllPhases))
	for _, p := range s.Ordered() {
		names = append(names, p.Flag())
	}

	return strings.Join(names, ",")
}

// PlatformKind is the Kubernetes flavor of the target cluster.
type PlatformKind uint8

const (
	PlatformUnknown PlatformKind = iota
	PlatformKubernetes
	PlatformOpenShift
)

func (k PlatformKind) String() string {
	switch k {
	case PlatformKubernetes:
		return "kubernetes"
	case PlatformOpenShift:
		return "openshift"
	default:
		return "unknown"
	}
}
