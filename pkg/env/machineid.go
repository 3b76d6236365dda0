// Package env provides identity of the host running a sensor.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID scopes the protected machine ID so it can't be correlated
// with IDs used by other applications.
const AppID = "ftsense"

// idLen is the length of the ID derived from the machine ID.
const idLen = 12

// MachineID retrieves the unique ID identifying the machine.
func MachineID() (string, error) {
	return machineid.ProtectedID(AppID)
}

// DefaultID returns a stable sensor ID for this machine.
// It falls back to the hostname when the machine ID is unavailable.
func DefaultID() string {
	id, err := MachineID()
	if err == nil && len(id) >= idLen {
		return id[:idLen]
	}
	glog.V(1).Infof("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
