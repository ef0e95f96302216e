/*
Copyright (C) 2021-2023, Kubefirst

This program is licensed under MIT.
See the LICENSE file for more details.
*/
package prechecks

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/konstructio/hybrid-setup/internal/common"
	"github.com/rs/zerolog/log"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// CommandExists returns an error if cmd is not found within the users $PATH variable.
func CommandExists(cmd string) error {
	if _, err := lookPath(cmd); err != nil {
		return fmt.Errorf("%s not installed - but is required", cmd)
	}

	return nil
}

// RequireCommands checks every command and fails once, listing all of the
// missing ones together.
func RequireCommands(cmds ...string) error {
	var missing []string
	for _, cmd := range cmds {
		if err := CommandExists(cmd); err != nil {
			log.Debug().Msg(err.Error())
			missing = append(missing, cmd)
			continue
		}
		log.Debug().Msgf("found required command %s", cmd)
	}

	if len(missing) > 0 {
		return common.Fatalf("the following commands are required but not installed: %s", strings.Join(missing, ", "))
	}

	return nil
}

// DirExists returns an error if d does not exist or is not a directory.
func DirExists(d string) error {
	info, err := os.Stat(d)
	if err != nil {
		return fmt.Errorf("directory %s does not exist - but is required", d)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", d)
	}

	return nil
}
