// Package client implements the chat client: it locates the current
// primary replica by walking the configured rank order and re-walks it
// whenever the replica it talks to stops answering. Recovery is purely
// local; the client and the replicas converge on the same rank order
// without ever coordinating.
package client

import (
	"errors"
	"net/rpc"
	"sync"
	"time"

	"ReplicatedChat/config"
	"ReplicatedChat/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNoReplica means no configured replica answered the startup probe.
var ErrNoReplica = errors.New("no replica answered the startup probe")

type ChatClient struct {
	id          string // instance id for log correlation
	endpoints   []config.Endpoint
	callTimeout time.Duration

	// primaryIndex is this client's own failover pointer; it advances
	// (wrapping) on every transport failure against the active stub.
	primaryIndex int
	stub         *rpc.Client
	mutex        sync.Mutex
	logger       *logrus.Entry
}

// NewChatClient probes the configured replicas in rank order and
// adopts the first one that answers a heartbeat as primary. It fails
// with ErrNoReplica when none answers.
func NewChatClient(cfg config.Config) (*ChatClient, error) {
	c := &ChatClient{
		id:          uuid.NewString(),
		endpoints:   cfg.Replicas,
		callTimeout: cfg.CallTimeout(),
	}
	c.logger = logrus.WithField("client", c.id)

	for i, endpoint := range c.endpoints {
		stub, err := dialEndpoint(endpoint.Address(), c.callTimeout)
		if err != nil {
			continue
		}
		var res models.NoParam
		if err := callWithTimeout(stub, "Replica.HeartbeatRPC", models.NoParam{}, &res, c.callTimeout); err != nil {
			stub.Close()
			continue
		}
		c.primaryIndex = i
		c.stub = stub
		c.logger.Infof("Replica %d chosen as primary", i)
		return c, nil
	}
	return nil, ErrNoReplica
}

// PrimaryIndex returns the rank the client currently treats as primary.
func (c *ChatClient) PrimaryIndex() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.primaryIndex
}

// Close drops the active replica connection.
func (c *ChatClient) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.stub != nil {
		c.stub.Close()
		c.stub = nil
	}
}

// activeStub returns the current connection, dialing the current
// pointer's endpoint if there is none.
func (c *ChatClient) activeStub() (*rpc.Client, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.stub != nil {
		return c.stub, nil
	}
	stub, err := dialEndpoint(c.endpoints[c.primaryIndex].Address(), c.callTimeout)
	if err != nil {
		return nil, err
	}
	c.stub = stub
	return stub, nil
}

// advanceReplica moves the failover pointer one rank forward, wrapping
// around the replica list, and drops the dead connection.
func (c *ChatClient) advanceReplica() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.stub != nil {
		c.stub.Close()
		c.stub = nil
	}
	c.primaryIndex = (c.primaryIndex + 1) % len(c.endpoints)
	c.logger.Infof("Switched to replica %d as primary", c.primaryIndex)
}

// call issues one unary RPC against the active replica, advancing the
// pointer and retrying on transport failure, at most one full walk of
// the replica list. A domain-level server error comes from a live
// replica and is returned as-is, it never triggers failover.
func (c *ChatClient) call(method string, args interface{}, reply interface{}) error {
	var lastErr error
	for attempt := 0; attempt < len(c.endpoints); attempt++ {
		stub, err := c.activeStub()
		if err != nil {
			lastErr = err
			c.advanceReplica()
			continue
		}

		err = callWithTimeout(stub, method, args, reply, c.callTimeout)
		if err == nil {
			return nil
		}
		if _, domain := err.(rpc.ServerError); domain {
			return err
		}
		lastErr = err
		c.advanceReplica()
	}
	return lastErr
}
