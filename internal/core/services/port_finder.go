package services

import (
	"fmt"
	"net"
	"strconv"
)

// FindAvailablePort returns the first port in [startPort, endPort] that
// host can listen on. The probe listener is closed before returning.
func FindAvailablePort(host string, startPort, endPort int) (int, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	for port := startPort; port <= endPort; port++ {
		listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d on %s", startPort, endPort, host)
}
