package main

import (
	"github.com/robotalks/ftsense/pkg/cli/sh"
	"github.com/robotalks/ftsense/pkg/ftsensor"

	_ "github.com/robotalks/ftsense/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	ftsensor.SetupFlags()
}

func main() {
	sh.Main()
}
