package client

import (
	"errors"
	"net"
	"net/rpc"
	"time"
)

var errEndpointTimeout = errors.New("endpoint did not answer within the call timeout")

// callWithTimeout issues one RPC against stub and gives up after
// timeout, treating the endpoint as unreachable.
func callWithTimeout(stub *rpc.Client, method string, args interface{}, reply interface{}, timeout time.Duration) error {
	done := make(chan *rpc.Call, 1)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	stub.Go(method, args, reply, done)

	select {
	case call := <-done:
		return call.Error
	case <-timer.C:
		return errEndpointTimeout
	}
}

// dialEndpoint opens a fresh RPC connection to address, bounded by
// timeout.
func dialEndpoint(address string, timeout time.Duration) (*rpc.Client, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, err
	}
	return rpc.NewClient(conn), nil
}
