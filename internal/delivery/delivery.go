// Package delivery defines the contract every transport server implements.
package delivery

import "context"

// Delivery is one serving surface of the application (HTTP API, worker
// push endpoint). Instances are collected into the "deliveries" group and
// started together by the entrypoint.
type Delivery interface {
	Serve(ctx context.Context) error
}
