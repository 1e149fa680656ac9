// Package main is the entry point for the vireo application.
package main

import (
	"github.com/samber/lo"
	"github.com/vireo-cli/vireo/cmd"
	"github.com/vireo-cli/vireo/config"
	"github.com/vireo-cli/vireo/internal/cache"
	"github.com/vireo-cli/vireo/internal/sync"
	"github.com/vireo-cli/vireo/log"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	// Initialize asynchronous background processes for cache maintenance and
	// deferred scrobble delivery.
	cache.CollectGarbage()
	sync.ReconcileFailures()

	cmd.Execute()
}
