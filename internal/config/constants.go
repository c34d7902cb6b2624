package config

import "time"

// Timeouts used by the cmd layer.
const (
	RPCSelectTimeout = 10 * time.Second // endpoint benchmark
	QueryTimeout     = 30 * time.Second // single read-only command
	SubmitTimeout    = 2 * time.Minute  // build, sign and broadcast
)

// Confirmation polling defaults.
const (
	DefaultConfirmations         = 1
	DefaultPollInterval          = 5 * time.Second
	DefaultInclusionPollInterval = 15 * time.Second
	DefaultBroadcastAttempts     = 3
)
