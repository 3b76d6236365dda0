// Package sensor implements the protocol layer of serial force/torque sensors.
package sensor

// A Sensor sends single-byte commands over a serial Transport and reads
// back one fixed-format ASCII frame per command. The frame layout and the
// command bytes depend on the sensor family and are supplied by a Codec.
//
// Reads are polled: the device may not have answered yet, or may have
// answered partially. UpdateDataUntilCorrect absorbs both cases, as well
// as malformed frames, by retrying a bounded number of times.
//
// Producer: sensor firmware
// Consumer: acquisition loop (pkg/ftsensor) or the shell (pkg/cli/sh)
