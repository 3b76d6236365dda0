// Package msgs defines the messages published by a sensor daemon and
// the Typed envelope carrying them over the wire.
//
// Producer: sensor daemon
// Consumer: monitors, controllers
package msgs
