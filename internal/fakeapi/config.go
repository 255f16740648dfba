package fakeapi

import "time"

// Config holds configuration for the stub evaluation API.
type Config struct {
	Addr       string        // listen address
	Count      int           // number of evaluations to generate
	Seed       uint64        // generator seed
	Latency    time.Duration // artificial delay per request
	OutputFile string        // optional dump of the generated records
	LogFile    string        // optional log file in addition to stdout
	Verbose    bool          // debug logging
}
