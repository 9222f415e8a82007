package replica

import (
	"testing"
	"time"
)

func TestMonitorPromotesPastDeadPrimary(t *testing.T) {
	// rank 0 is never started, so the rank 1 monitor must advance and
	// promote itself
	cfg := testConfig("7401", "7402")
	backup := newTestReplica(t, 1, cfg)
	backup.Run()

	deadline := time.Now().Add(3 * time.Second)
	for !backup.IsPrimary() {
		if time.Now().After(deadline) {
			t.Fatal("Monitor never promoted the backup")
		}
		time.Sleep(50 * time.Millisecond)
	}

	if backup.PrimaryRank() != 1 {
		t.Errorf("Expected failover pointer at 1, got %v", backup.PrimaryRank())
	}
}

func TestMonitorStaysBackupWhilePrimaryLives(t *testing.T) {
	cfg := testConfig("7411", "7412")
	newTestReplica(t, 0, cfg)
	backup := newTestReplica(t, 1, cfg)
	backup.Run()

	time.Sleep(5 * cfg.ProbeInterval())

	if backup.IsPrimary() {
		t.Error("Backup promoted itself while the primary was alive")
	}
	if backup.PrimaryRank() != 0 {
		t.Errorf("Expected failover pointer to stay at 0, got %v", backup.PrimaryRank())
	}
}

func TestMonitorsConvergeAfterFailure(t *testing.T) {
	cfg := testConfig("7421", "7422", "7423")
	primary := newTestReplica(t, 0, cfg)
	second := newTestReplica(t, 1, cfg)
	third := newTestReplica(t, 2, cfg)
	second.Run()
	third.Run()

	time.Sleep(3 * cfg.ProbeInterval())
	primary.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if second.IsPrimary() && third.PrimaryRank() == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Monitors did not converge on rank 1: second=%v third=%v",
				second.PrimaryRank(), third.PrimaryRank())
		}
		time.Sleep(50 * time.Millisecond)
	}

	// rank 0 stays gone: the third replica must not advance past 1
	time.Sleep(3 * cfg.ProbeInterval())
	if third.PrimaryRank() != 1 {
		t.Errorf("Third replica advanced past the live rank 1, pointer at %v", third.PrimaryRank())
	}
}

func TestRankZeroIsPrimaryImmediately(t *testing.T) {
	cfg := testConfig("7431")
	r := newTestReplica(t, 0, cfg)
	r.Run()

	time.Sleep(100 * time.Millisecond)
	if !r.IsPrimary() {
		t.Error("Rank 0 should consider itself primary from the start")
	}
}
