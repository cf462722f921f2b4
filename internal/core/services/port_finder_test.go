package services

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAvailablePort_SkipsBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	busyPort := busy.Addr().(*net.TCPAddr).Port

	port, err := FindAvailablePort("127.0.0.1", busyPort, busyPort+20)
	require.NoError(t, err)
	assert.NotEqual(t, busyPort, port)
	assert.Greater(t, port, busyPort)

	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	require.NoError(t, err)
	l.Close()
}

func TestFindAvailablePort_NoneFree(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	busyPort := busy.Addr().(*net.TCPAddr).Port

	_, err = FindAvailablePort("", busyPort, busyPort)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no available port")
}
