/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package reports

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/konstructio/hybrid-setup/configs"
)

const sectionWidth = 59

// Summary returns the hand-off lines printed after a successful run.
func Summary(cfg configs.Config) []string {
	var handOffData bytes.Buffer

	handOffData.WriteString("Hybrid runtime setup completed\n")
	handOffData.Write(sectionRuntime(cfg))
	if cfg.ClusterName != "" {
		handOffData.Write(sectionCluster(cfg))
	}

	return strings.Split(handOffData.String(), "\n")
}

func sectionRuntime(cfg configs.Config) []byte {
	var handOffData bytes.Buffer

	handOffData.WriteString("\n--- Runtime ")
	handOffData.WriteString(strings.Repeat("-", sectionWidth))
	handOffData.WriteString(fmt.Sprintf("\n Phases:       %s", cfg.Phases))
	handOffData.WriteString(fmt.Sprintf("\n Organization: %s", cfg.Org))
	handOffData.WriteString(fmt.Sprintf("\n Environment:  %s", cfg.Env))
	handOffData.WriteString(fmt.Sprintf("\n Env group:    %s", cfg.EnvGroup))
	if cfg.IngressDomain != "" {
		handOffData.WriteString(fmt.Sprintf("\n Hostname:     %s", cfg.IngressDomain))
	}

	return handOffData.Bytes()
}

func sectionCluster(cfg configs.Config) []byte {
	var handOffData bytes.Buffer

	handOffData.WriteString("\n--- Cluster ")
	handOffData.WriteString(strings.Repeat("-", sectionWidth))
	handOffData.WriteString(fmt.Sprintf("\n Name:      %s", cfg.ClusterName))
	handOffData.WriteString(fmt.Sprintf("\n Region:    %s", cfg.ClusterRegion))
	handOffData.WriteString(fmt.Sprintf("\n Namespace: %s", cfg.Namespace))
	if cfg.Platform != configs.PlatformUnknown {
		handOffData.WriteString(fmt.Sprintf("\n Platform:  %s", cfg.Platform))
	}

	return handOffData.Bytes()
}
