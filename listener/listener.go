package listener

import "context"

// Listener serves one network surface of the server.
type Listener interface {
	Addr() string
	Type() string
	Start(ctx context.Context) error
	Stop() error
}
