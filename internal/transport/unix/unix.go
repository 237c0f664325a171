// Package unix implements the MCP Unix domain socket transport:
// newline-delimited JSON over a dialed Unix socket (spec §6).
package unix

import (
	"context"
	"io"
	"net"

	"github.com/Epistates/turbomcp-sub009/internal/transport/linewire"
)

// New builds a Unix domain socket Transport that dials path on Connect.
func New(path string) *linewire.Transport {
	var dialer net.Dialer
	return linewire.New(func(ctx context.Context) (io.ReadWriteCloser, error) {
		return dialer.DialContext(ctx, "unix", path)
	}, true)
}
