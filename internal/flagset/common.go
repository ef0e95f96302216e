package flagset

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Source is where a flag value was read from.
type Source int

const (
	FLAG Source = iota
	ENV
	CONFIG
	NONE
)

// envVarNames holds the historical environment variable names that do not
// follow the HYBRID_SETUP_<FLAG> convention.
var envVarNames = map[string]string{
	"org":            "ORGANIZATION_NAME",
	"env":            "ENVIRONMENT_NAME",
	"envgroup":       "ENVIRONMENT_GROUP_NAME",
	"ingress-domain": "ENVIRONMENT_GROUP_HOSTNAME",
	"namespace":      "APIGEE_NAMESPACE",
	"cluster-name":   "CLUSTER_NAME",
	"cluster-region": "CLUSTER_REGION",
	"gcp-project-id": "GCP_PROJECT_ID",
	"kubeconfig":     "KUBECONFIG",
}

// Reader reads flag values following the precedence rule
// flag, then environment variable, then config file, then flag default.
type Reader struct {
	cmd  *cobra.Command
	file *viper.Viper
}

// NewReader returns a Reader for cmd. file may be nil when no config file is used.
func NewReader(cmd *cobra.Command, file *viper.Viper) *Reader {
	return &Reader{cmd: cmd, file: file}
}

// ReadConfigString reads a string flag.
func (r *Reader) ReadConfigString(flag string) (string, error) {
	switch r.DefineSource(flag) {
	case ENV:
		return os.Getenv(GetFlagVarName(flag)), nil
	case CONFIG:
		return r.file.GetString(flag), nil
	default:
		value, err := r.cmd.Flags().GetString(flag)
		if err != nil {
			return "", fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
		return value, nil
	}
}

// ReadConfigBool reads a boolean flag.
func (r *Reader) ReadConfigBool(flag string) (bool, error) {
	switch r.DefineSource(flag) {
	case ENV:
		value, err := strconv.ParseBool(os.Getenv(GetFlagVarName(flag)))
		if err != nil {
			return false, fmt.Errorf("invalid boolean in %s: %w", GetFlagVarName(flag), err)
		}
		return value, nil
	case CONFIG:
		return r.file.GetBool(flag), nil
	default:
		value, err := r.cmd.Flags().GetBool(flag)
		if err != nil {
			return false, fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
		return value, nil
	}
}

// DefineSource - Calculate precedence rule for flags and variables
func (r *Reader) DefineSource(flag string) Source {
	flagReference := r.cmd.Flags().Lookup(flag)
	if flagReference != nil && flagReference.Changed {
		log.Debug().Msgf("flag(%s) set from CLI flag", flag)
		return FLAG
	}

	envVarName := GetFlagVarName(flag)
	if _, envExist := os.LookupEnv(envVarName); envExist {
		log.Debug().Msgf("environment variable(%s) set - using this value for flag(%s)", envVarName, flag)
		return ENV
	}

	if r.file != nil && r.file.IsSet(flag) {
		log.Debug().Msgf("flag(%s) set from config file", flag)
		return CONFIG
	}

	return NONE
}

// GetFlagVarName - Translates a flag name into a environment variable name
func GetFlagVarName(flag string) string {
	if name, ok := envVarNames[flag]; ok {
		return name
	}

	varName := "HYBRID_SETUP_" + strings.ToUpper(flag)
	return strings.ReplaceAll(varName, "-", "_")
}

// LoadConfigFile reads an optional YAML file whose keys are flag names.
func LoadConfigFile(path string) (*viper.Viper, error) {
	if path == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file %s: %w", path, err)
	}
	log.Debug().Msgf("loaded config file %s", path)

	return v, nil
}
