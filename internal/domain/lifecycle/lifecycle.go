// Package lifecycle holds shared lifecycle constants for servers and clients.
package lifecycle

import "time"

// DefaultTimeout bounds graceful shutdown of servers and connections.
const DefaultTimeout = 10 * time.Second
