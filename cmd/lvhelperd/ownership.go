package main

import (
	"context"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ni/labview-automation/pkg/lib/helpers"
)

// owners remembers which caller started each process. Processes the daemon
// did not start, such as a LabVIEW launched by hand, have no owner and are
// open to every authenticated caller.
type owners struct {
	mu    sync.RWMutex
	byPID map[int]string
}

var _ helpers.Ownership = (*owners)(nil)

func newOwners() *owners {
	return &owners{byPID: make(map[int]string)}
}

func (o *owners) Claim(ctx context.Context, pid int) {
	id, ok := spiffeIDFromContext(ctx)
	if !ok {
		return
	}
	o.mu.Lock()
	o.byPID[pid] = id
	o.mu.Unlock()
}

func (o *owners) Check(ctx context.Context, pid int) error {
	id, ok := spiffeIDFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "client must have SPIFFE ID")
	}

	o.mu.RLock()
	owner, owned := o.byPID[pid]
	o.mu.RUnlock()

	if owned && owner != id {
		return status.Error(codes.PermissionDenied, "only the caller that started the process can access it")
	}
	return nil
}
