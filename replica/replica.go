// Package replica implements one chat replica process: the RPC service
// clients talk to, best-effort propagation of mutations to the other
// replicas while acting as primary, and the liveness monitor that
// promotes this replica when every higher-priority one is gone.
package replica

import (
	"fmt"
	"net"
	"net/rpc"
	"sync"
	"time"

	"ReplicatedChat/chatdb"
	"ReplicatedChat/config"

	"github.com/sirupsen/logrus"
)

// Replica owns all per-process replication state: its fixed rank, the
// shared endpoint list and its private notion of which rank is primary.
// Nothing here is shared across processes; replicas only ever exchange
// RPCs.
type Replica struct {
	rank          int
	endpoints     []config.Endpoint
	store         *chatdb.Store
	probeInterval time.Duration
	callTimeout   time.Duration

	// primaryRank is the lowest rank currently believed reachable.
	// It only ever advances; there is no demotion path.
	primaryRank int
	stubs       []*rpc.Client // lazily dialed peer stubs, nil at own rank
	listener    net.Listener
	conns       map[net.Conn]struct{}
	mutex       sync.Mutex
	logger      *logrus.Entry
}

// NewReplica creates the replica of the given rank, registers its RPC
// service and starts accepting connections on its configured endpoint.
// The liveness monitor is not started until Run.
func NewReplica(rank int, cfg config.Config, store *chatdb.Store) (*Replica, error) {
	if rank < 0 || rank >= len(cfg.Replicas) {
		return nil, fmt.Errorf("rank %v outside configured replica list of size %v", rank, len(cfg.Replicas))
	}

	r := &Replica{
		rank:          rank,
		endpoints:     cfg.Replicas,
		store:         store,
		probeInterval: cfg.ProbeInterval(),
		callTimeout:   cfg.CallTimeout(),
		primaryRank:   0,
		stubs:         make([]*rpc.Client, len(cfg.Replicas)),
		conns:         make(map[net.Conn]struct{}),
		logger:        logrus.WithField("replica", rank),
	}

	server := rpc.NewServer()
	if err := server.RegisterName("Replica", r); err != nil {
		return nil, fmt.Errorf("failed to register replica %v: %w", rank, err)
	}

	listener, err := net.Listen("tcp", r.endpoints[rank].Address())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %v: %w", r.endpoints[rank].Address(), err)
	}
	r.listener = listener
	r.logger.Infof("Replica %d is listening on %s", rank, r.endpoints[rank].Address())

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			r.mutex.Lock()
			r.conns[conn] = struct{}{}
			r.mutex.Unlock()
			go func() {
				server.ServeConn(conn)
				r.mutex.Lock()
				delete(r.conns, conn)
				r.mutex.Unlock()
			}()
		}
	}()

	return r, nil
}

// Run starts the liveness monitor in the background.
func (r *Replica) Run() {
	go r.MonitorPrimary()
}

// Rank returns this replica's fixed position in the endpoint list.
func (r *Replica) Rank() int {
	return r.rank
}

// PrimaryRank returns the rank this replica currently believes to be
// primary.
func (r *Replica) PrimaryRank() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.primaryRank
}

// IsPrimary reports whether this replica considers itself primary, i.e.
// its failover pointer has reached its own rank.
func (r *Replica) IsPrimary() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.primaryRank == r.rank
}

// Close stops the listener, severs every served connection and closes
// peer stubs and the store. In-flight long-poll calls observe a broken
// connection, the same signal a crashed replica would give.
func (r *Replica) Close() {
	r.listener.Close()

	r.mutex.Lock()
	for conn := range r.conns {
		conn.Close()
	}
	for rank, stub := range r.stubs {
		if stub != nil {
			stub.Close()
			r.stubs[rank] = nil
		}
	}
	r.mutex.Unlock()

	r.store.Close()
	r.logger.Infof("Replica %d shutdown", r.rank)
}
