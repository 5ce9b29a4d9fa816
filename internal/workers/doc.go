/*
Package workers sizes worker pools from the hardware concurrency actually
available to the process.

runtime.NumCPU reports the host's CPUs, while runtime.GOMAXPROCS(0) follows
container CPU limits (Go 1.19+). The digest engine uses ForCPU so that a
container limited to 2 CPUs runs 2 hashing goroutines, not one per host core.

# Usage

	numWorkers := workers.ForCPU(0)  // one per available CPU, no cap
	numWorkers := workers.Count(2.0, 16)

# Environment Variable Override

Operators can pin the pool size with HASH_WORKERS:

	HASH_WORKERS=4 hashdrop

Invalid, zero or negative values are ignored and the automatic calculation is
used. The limit argument still caps an override.
*/
package workers
