package replica

import (
	"time"

	"ReplicatedChat/models"
)

// MonitorPrimary probes the replica currently believed to be primary
// and advances the failover pointer whenever the probe fails. Every
// replica runs one monitor; each advances its own pointer
// independently, there is no coordination. Once the pointer reaches
// this replica's own rank it is the primary and the monitor parks:
// promotion is terminal, a reappearing lower-rank replica is never
// demoted for.
func (r *Replica) MonitorPrimary() {
	for {
		r.mutex.Lock()
		probed := r.primaryRank
		r.mutex.Unlock()

		if probed >= r.rank {
			r.logger.Infof("Replica %d is now the primary replica", r.rank)
			return
		}

		if err := r.probeEndpoint(probed); err != nil {
			r.logger.Warnf("Heartbeat to replica %d failed (%v), advancing failover pointer", probed, err)
			r.mutex.Lock()
			if r.primaryRank == probed {
				r.primaryRank++
			}
			r.mutex.Unlock()
			continue
		}

		time.Sleep(r.probeInterval)
	}
}

// probeEndpoint sends one heartbeat to the replica at rank over a fresh
// connection. Slow and down are indistinguishable on purpose: both mean
// "not primary".
func (r *Replica) probeEndpoint(rank int) error {
	stub, err := dialEndpoint(r.endpoints[rank].Address(), r.callTimeout)
	if err != nil {
		return err
	}
	defer stub.Close()

	var res models.NoParam
	return callWithTimeout(stub, "Replica.HeartbeatRPC", models.NoParam{}, &res, r.callTimeout)
}
