package cli

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mrz1836/cashgate/internal/output"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func outputMessenger(out, errOut io.Writer) output.Messenger {
	return output.Messenger{Out: out, Err: errOut}
}
