// Package sensor converts raw analog samples into calibrated readings.
//
// The conversions are pure functions over a 16-bit sample. Reading from
// hardware goes through the AnalogInput and Hygrometer collaborators,
// whose failures are reported as *Fault.
package sensor
