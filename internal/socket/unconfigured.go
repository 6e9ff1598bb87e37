package socket

import (
	"context"
	"errors"
)

// ErrTransportNotConfigured is returned by UnconfiguredTransport.Connect.
var ErrTransportNotConfigured = errors.New("socket: no realtime transport configured")

// UnconfiguredTransport is the default Transport wired by cmd/acp-seller
// when no concrete realtime client has been supplied. The realtime wire
// protocol (the backend's socket.io-style channel) is an external
// collaborator this repo does not implement a client for; deployments that
// want push-based job discovery provide their own Transport, and the poll
// reconciler remains the fully-functional fallback path in the meantime.
type UnconfiguredTransport struct{}

// Connect always fails with ErrTransportNotConfigured.
func (UnconfiguredTransport) Connect(ctx context.Context) (Session, error) {
	return nil, ErrTransportNotConfigured
}
