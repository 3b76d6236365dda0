package serial

import (
	"io"
	"sort"
	"sync"
)

// Device is an opened and configured serial device.
type Device interface {
	io.ReadWriteCloser
	// InputWaiting returns the number of bytes received and not yet read.
	// A negative count means the driver can't tell.
	InputWaiting() (int, error)
	// OutputWaiting returns the number of bytes written and not yet sent.
	OutputWaiting() (int, error)
	// Flush discards unread input and unsent output.
	Flush() error
}

// Driver opens a device and applies the settings.
// It must not return a Device when configuration fails.
type Driver func(cfg Config) (Device, error)

var (
	drivers     = make(map[string]Driver)
	driversLock sync.RWMutex
)

// RegisterDriver makes a driver available by name.
func RegisterDriver(name string, driver Driver) {
	driversLock.Lock()
	drivers[name] = driver
	driversLock.Unlock()
}

// Drivers lists registered driver names.
func Drivers() []string {
	driversLock.RLock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	driversLock.RUnlock()
	sort.Strings(names)
	return names
}

// DefaultDriver is the driver used when Config.Driver is empty.
func DefaultDriver() string {
	return defaultDriver
}

func lookupDriver(name string) (Driver, bool) {
	if name == "" {
		name = defaultDriver
	}
	driversLock.RLock()
	defer driversLock.RUnlock()
	d, ok := drivers[name]
	return d, ok
}
