// Package memory sizes the Go soft memory limit for containerized deployments.
//
// GOMAXPROCS follows cgroup CPU limits automatically but GOMEMLIMIT does not.
// [ConfigureFromEnv] derives it from MEMORY_LIMIT, normally populated through
// the Kubernetes Downward API:
//
//	env:
//	  - name: MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//	  - name: MEMORY_RATIO
//	    value: "0.85"
//
// An explicit GOMEMLIMIT always wins; the runtime has already applied it by the
// time main runs, so it is only reported.
package memory
