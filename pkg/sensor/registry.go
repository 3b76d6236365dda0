package sensor

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a sensor of one model on a transport.
type Factory func(t Transport) ForceSensor

var (
	models     = make(map[string]Factory)
	modelsLock sync.RWMutex
)

// Register makes a sensor model available by name.
// It's expected to be called from init funcs.
func Register(name string, factory Factory) {
	modelsLock.Lock()
	models[name] = factory
	modelsLock.Unlock()
}

// Models lists registered model names.
func Models() []string {
	modelsLock.RLock()
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	modelsLock.RUnlock()
	sort.Strings(names)
	return names
}

// NewModel creates a sensor of the named model.
func NewModel(name string, t Transport, opts Options) (ForceSensor, error) {
	modelsLock.RLock()
	factory, ok := models[name]
	modelsLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, name)
	}
	s := factory(t)
	s.SetOptions(opts)
	return s, nil
}
