package overlays

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/konstructio/hybrid-setup/configs"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	openShiftStart = "# openshift-start"
	openShiftEnd   = "# openshift-end"
)

var (
	meshNamespace   = regexp.MustCompile(`(?m)^(\s*kubernetes\.io/metadata\.name:\s*)\S+`)
	meshTrustDomain = regexp.MustCompile(`(?m)^(\s*trustDomain:\s*)\S+`)
	commentPrefix   = regexp.MustCompile(`^(\s*)# ?`)
)

// SubstituteMeshConfig sets the discovery selector namespace and the trust
// domain of the service mesh config, which carry no setter comments.
func (e *Editor) SubstituteMeshConfig(cfg configs.Config) error {
	path := filepath.Join(cfg.OverlaysDir(), meshConfigFile)

	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return fmt.Errorf("unable to read mesh config: %w", err)
	}

	out := meshNamespace.ReplaceAll(data, []byte("${1}"+cfg.Namespace))
	out = meshTrustDomain.ReplaceAll(out, []byte("${1}"+cfg.ProjectID+".svc.id.goog"))

	if bytes.Equal(out, data) {
		return nil
	}
	if err := afero.WriteFile(e.fs, path, out, 0o644); err != nil {
		return fmt.Errorf("unable to write mesh config: %w", err)
	}
	log.Info().Msgf("updated %s", path)

	return nil
}

// EnableOpenShiftBlocks un-comments the lines between openshift-start and
// openshift-end markers in every yaml file under dir.
func (e *Editor) EnableOpenShiftBlocks(dir string) error {
	return afero.Walk(e.fs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isYAML(path) {
			return nil
		}

		data, err := afero.ReadFile(e.fs, path)
		if err != nil {
			return fmt.Errorf("unable to read %s: %w", path, err)
		}
		if !bytes.Contains(data, []byte(openShiftStart)) {
			return nil
		}

		out, err := uncommentBlocks(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if bytes.Equal(out, data) {
			return nil
		}

		if err := afero.WriteFile(e.fs, path, out, info.Mode().Perm()); err != nil {
			return fmt.Errorf("unable to write %s: %w", path, err)
		}
		log.Info().Msgf("enabled OpenShift configuration in %s", path)

		return nil
	})
}

func uncommentBlocks(data []byte) ([]byte, error) {
	var out bytes.Buffer
	inBlock := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		marker := strings.TrimSpace(line)

		switch {
		case marker == openShiftStart:
			inBlock = true
		case marker == openShiftEnd:
			inBlock = false
		case inBlock:
			line = commentPrefix.ReplaceAllString(line, "${1}")
		}

		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inBlock {
		return nil, fmt.Errorf("%q without a matching %q", openShiftStart, openShiftEnd)
	}

	if !bytes.HasSuffix(data, []byte("\n")) {
		return bytes.TrimSuffix(out.Bytes(), []byte("\n")), nil
	}

	return out.Bytes(), nil
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
