package flagset

import (
	"fmt"
	"os"

	"github.com/konstructio/hybrid-setup/configs"
	"github.com/spf13/cobra"
)

// value flags, in the order they are listed in --help
var valueFlags = []struct {
	name, def, usage string
}{
	{"org", "", "organization name (defaults to the active gcloud project)"},
	{"env", "", "environment name (defaults to the only environment of the organization)"},
	{"envgroup", "", "environment group name (defaults to the only environment group of the organization)"},
	{"ingress-domain", "", "hostname used by the ingress certificate (defaults to the environment group hostname)"},
	{"namespace", configs.DefaultNamespace, "namespace the runtime components are installed into"},
	{"cluster-name", "", "name of the Kubernetes cluster"},
	{"cluster-region", "", "region of the Kubernetes cluster"},
	{"gcp-project-id", "", "GCP project id (defaults to the organization name)"},
	{"root-dir", "", "directory holding overlays/ and tools/ (defaults to the current directory)"},
	{"kubeconfig", "", "path to the kubeconfig file"},
	{"api-url", configs.DefaultAPIURL, "base URL of the management API"},
}

// DefineSetupFlags registers every flag of the setup command.
func DefineSetupFlags(cmd *cobra.Command) {
	for _, f := range valueFlags {
		cmd.Flags().String(f.name, f.def, f.usage)
	}
	cmd.Flags().String("config", "", "optional YAML file with flag values keyed by flag name")

	for _, p := range configs.AllPhases {
		cmd.Flags().Bool(p.Flag(), false, fmt.Sprintf("run the %q phase", p.String()))
	}
	cmd.Flags().Bool("setup-all", false, "run every phase")
	cmd.Flags().Bool("verbose", false, "print debug logs and the output of external commands")
}

// ProcessSetupFlags reads every setup flag into configs.Inputs.
func ProcessSetupFlags(cmd *cobra.Command) (configs.Inputs, error) {
	in := configs.Inputs{}

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return in, fmt.Errorf("failed to get config flag: %w", err)
	}
	file, err := LoadConfigFile(configFile)
	if err != nil {
		return in, err
	}
	r := NewReader(cmd, file)

	targets := map[string]*string{
		"org":            &in.Org,
		"env":            &in.Env,
		"envgroup":       &in.EnvGroup,
		"ingress-domain": &in.IngressDomain,
		"namespace":      &in.Namespace,
		"cluster-name":   &in.ClusterName,
		"cluster-region": &in.ClusterRegion,
		"gcp-project-id": &in.ProjectID,
		"root-dir":       &in.RootDir,
		"kubeconfig":     &in.Kubeconfig,
		"api-url":        &in.APIURL,
	}
	for flag, target := range targets {
		if *target, err = r.ReadConfigString(flag); err != nil {
			return in, err
		}
	}

	if in.RootDir == "" {
		if in.RootDir, err = os.Getwd(); err != nil {
			return in, fmt.Errorf("unable to determine the current directory: %w", err)
		}
	}

	if in.Verbose, err = r.ReadConfigBool("verbose"); err != nil {
		return in, err
	}

	all, err := r.ReadConfigBool("setup-all")
	if err != nil {
		return in, err
	}
	for _, p := range configs.AllPhases {
		selected, err := r.ReadConfigBool(p.Flag())
		if err != nil {
			return in, err
		}
		if selected || all {
			in.Phases = in.Phases.With(p)
		}
	}

	return in, nil
}
