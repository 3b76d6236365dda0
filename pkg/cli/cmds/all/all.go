// Package all registers all shell commands.
package all

import (
	// register commands
	_ "github.com/robotalks/ftsense/pkg/cli/cmds/remote"
	_ "github.com/robotalks/ftsense/pkg/cli/cmds/sensor"
)
