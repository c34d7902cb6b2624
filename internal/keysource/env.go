package keysource

import "os"

// FromEnv reads name from the process environment. Only the cmd layer calls
// this; library code receives a Source.
func FromEnv(name string) Env {
	return Env{Name: name, Lookup: os.LookupEnv}
}
