package replica

import (
	"net/rpc"

	"ReplicatedChat/models"
)

// propagate forwards a mutating request to every replica ranked after
// this one, in rank order, while this replica acts as primary. Lower
// ranks are exactly the ones this replica already declared unreachable,
// and skipping them keeps two transiently coexisting primaries from
// forwarding the same call back and forth. The forwarding is best
// effort: an unreachable target is logged and skipped, it neither
// aborts the fan-out nor surfaces to the client. A backup that is down
// during propagation simply misses the update.
func (r *Replica) propagate(method string, args interface{}) {
	if !r.IsPrimary() {
		return
	}

	for rank := r.rank + 1; rank < len(r.endpoints); rank++ {
		stub, err := r.peerStub(rank)
		if err != nil {
			r.logger.Warnf("Skipping propagation of %s to replica %d: %v", method, rank, err)
			continue
		}

		var res models.ServerResponse
		err = callWithTimeout(stub, "Replica."+method, args, &res, r.callTimeout)
		if err != nil {
			// the peer's local outcome does not matter here; only a
			// transport failure means the replica missed the update
			if _, domain := err.(rpc.ServerError); !domain {
				r.dropStub(rank)
				r.logger.Warnf("Propagation of %s to replica %d failed: %v", method, rank, err)
			}
		}
	}
}

// peerStub returns the cached connection to the replica at rank,
// dialing it first if needed.
func (r *Replica) peerStub(rank int) (*rpc.Client, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.stubs[rank] != nil {
		return r.stubs[rank], nil
	}

	stub, err := dialEndpoint(r.endpoints[rank].Address(), r.callTimeout)
	if err != nil {
		return nil, err
	}
	r.stubs[rank] = stub
	return stub, nil
}

// dropStub discards a dead peer connection so the next propagation
// redials.
func (r *Replica) dropStub(rank int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.stubs[rank] != nil {
		r.stubs[rank].Close()
		r.stubs[rank] = nil
	}
}
