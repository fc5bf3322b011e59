package backend

import (
	"fmt"
	"net"
	"strconv"
)

const (
	PortFrom = 40000
	PortTo   = 40100
)

// Listen binds the first free port of host in [from, to].
func Listen(host string, from, to int) (net.Listener, error) {
	for port := from; port <= to; port++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: no free port in %d..%d", ErrUnavailable, from, to)
}

// FindAvailablePort returns a port that was free a moment ago, for handing
// to a child process that binds it itself.
func FindAvailablePort(host string, from, to int) (int, error) {
	l, err := Listen(host, from, to)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
