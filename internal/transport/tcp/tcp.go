// Package tcp implements the MCP TCP transport: newline-delimited JSON over
// a dialed TCP connection (spec §6).
package tcp

import (
	"context"
	"io"
	"net"

	"github.com/Epistates/turbomcp-sub009/internal/transport/linewire"
)

// New builds a TCP Transport that dials addr on Connect.
func New(addr string) *linewire.Transport {
	var dialer net.Dialer
	return linewire.New(func(ctx context.Context) (io.ReadWriteCloser, error) {
		return dialer.DialContext(ctx, "tcp", addr)
	}, true)
}
