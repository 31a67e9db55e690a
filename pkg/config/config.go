// Package config re-exports the bench harness's concurrency configuration so
// external callers (the CLI) don't need to import the internal package
// directly.
package config

import "github.com/i5heu/GoWorkStealingDeque/internal/bench"

// Config is an alias for bench.Config.
type Config = bench.Config
