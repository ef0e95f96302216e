package overlays

import (
	"bytes"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"sigs.k8s.io/kustomize/kyaml/kio"
	"sigs.k8s.io/kustomize/kyaml/yaml"
)

var (
	setterComment = regexp.MustCompile(`^#\s*kpt-set:\s*(.+?)\s*$`)
	setterRef     = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)
)

// ApplySetters rewrites every scalar annotated with a "# kpt-set: <pattern>"
// line comment in the yaml files under dir. A pattern referencing an unknown
// setter is left untouched. Files without a changed value are not rewritten.
func (e *Editor) ApplySetters(dir string, setters map[string]string) error {
	changed := 0
	err := afero.Walk(e.fs, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isYAML(path) {
			return nil
		}

		n, err := e.setFile(path, info.Mode().Perm(), setters)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		changed += n

		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to apply setters in %s: %w", dir, err)
	}
	log.Info().Msgf("applied setters to %d values under %s", changed, dir)

	return nil
}

func (e *Editor) setFile(path string, perm fs.FileMode, setters map[string]string) (int, error) {
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return 0, fmt.Errorf("unable to read file: %w", err)
	}

	var out bytes.Buffer
	rw := &kio.ByteReadWriter{
		Reader:            bytes.NewReader(data),
		Writer:            &out,
		PreserveSeqIndent: true,
		NoWrap:            true,
	}

	changed := 0
	err = kio.Pipeline{
		Inputs: []kio.Reader{rw},
		Filters: []kio.Filter{kio.FilterFunc(func(nodes []*yaml.RNode) ([]*yaml.RNode, error) {
			for _, n := range nodes {
				changed += setNode(n.YNode(), setters)
			}
			return nodes, nil
		})},
		Outputs: []kio.Writer{rw},
	}.Execute()
	if err != nil {
		return 0, err
	}
	if changed == 0 {
		return 0, nil
	}

	if err := afero.WriteFile(e.fs, path, out.Bytes(), perm); err != nil {
		return 0, fmt.Errorf("unable to write file: %w", err)
	}

	return changed, nil
}

func setNode(node *yaml.Node, setters map[string]string) int {
	if node == nil {
		return 0
	}

	changed := 0
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				changed += setNode(value, setters)
				continue
			}

			// the comment of "key: value # kpt-set: ..." may land on the key
			comment := value.LineComment
			if comment == "" {
				comment = key.LineComment
			}
			if setScalar(value, comment, setters) {
				changed++
			}
		}
	case yaml.ScalarNode:
		if setScalar(node, node.LineComment, setters) {
			changed++
		}
	default:
		for _, child := range node.Content {
			changed += setNode(child, setters)
		}
	}

	return changed
}

func setScalar(node *yaml.Node, comment string, setters map[string]string) bool {
	m := setterComment.FindStringSubmatch(comment)
	if m == nil {
		return false
	}

	value, ok := expand(m[1], setters)
	if !ok || value == node.Value {
		return false
	}

	node.Value = value
	if node.Tag != "!!str" {
		node.Tag = ""
		node.Style = 0
	}

	return true
}

func expand(pattern string, setters map[string]string) (string, bool) {
	known := true
	value := setterRef.ReplaceAllStringFunc(pattern, func(ref string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(ref, "${"), "}")
		v, ok := setters[name]
		if !ok {
			known = false
			return ref
		}
		return v
	})

	return value, known
}
