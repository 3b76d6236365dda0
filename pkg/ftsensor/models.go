package ftsensor

import (
	// sensor models and serial drivers available to the daemon
	_ "github.com/robotalks/ftsense/pkg/sensor/dynpick"
	_ "github.com/robotalks/ftsense/pkg/sim"
)
