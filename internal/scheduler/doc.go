// Package scheduler drives the device: every tick it samples temperature
// and light, then runs humidity measurement, publishing, display refresh
// and memory reclamation when their intervals have elapsed.
//
// All loop state belongs to the goroutine calling Run. Other goroutines
// read the published Snapshot.
package scheduler
