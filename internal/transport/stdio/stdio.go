// Package stdio implements the MCP stdio transport: newline-delimited JSON
// over the process's standard input and output (spec §6).
package stdio

import (
	"context"
	"io"
	"os"

	"github.com/Epistates/turbomcp-sub009/internal/transport/linewire"
)

type stdioConn struct {
	io.Reader
	io.Writer
}

func (stdioConn) Close() error { return nil }

// New builds a stdio Transport. It is never bidirectional-capable beyond
// the protocol's own request/response flow, since stdin/stdout carry a
// single logical stream shared by both directions already.
func New() *linewire.Transport {
	return linewire.New(func(ctx context.Context) (io.ReadWriteCloser, error) {
		return stdioConn{Reader: os.Stdin, Writer: os.Stdout}, nil
	}, true)
}
