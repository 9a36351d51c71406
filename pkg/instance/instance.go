// Package instance identifies the running process in log fields so
// multi-replica workers can be told apart.
package instance

import "os"

// GetID reads the deployment-assigned instance id, falling back to a stable
// single-replica default.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "worker-0"
}
