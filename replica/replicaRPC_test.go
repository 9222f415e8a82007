package replica

import (
	"fmt"
	"net/rpc"
	"path/filepath"
	"testing"
	"time"

	"ReplicatedChat/chatdb"
	"ReplicatedChat/config"
	"ReplicatedChat/models"
)

func testConfig(ports ...string) config.Config {
	c := config.Config{
		ProbeIntervalMillis: 100,
		CallTimeoutMillis:   500,
	}
	for _, p := range ports {
		c.Replicas = append(c.Replicas, config.Endpoint{Host: "localhost", Port: p})
	}
	return c
}

func newTestReplica(t *testing.T, rank int, cfg config.Config) *Replica {
	t.Helper()
	store, err := chatdb.Open(filepath.Join(t.TempDir(), fmt.Sprintf("replica%d.db", rank)))
	if err != nil {
		t.Fatalf("Failed to open store for replica %d: %v", rank, err)
	}
	r, err := NewReplica(rank, cfg, store)
	if err != nil {
		t.Fatalf("Failed to start replica %d: %v", rank, err)
	}
	t.Cleanup(r.Close)
	return r
}

func dialReplica(t *testing.T, cfg config.Config, rank int) *rpc.Client {
	t.Helper()
	stub, err := rpc.Dial("tcp", cfg.Replicas[rank].Address())
	if err != nil {
		t.Fatalf("Failed to dial replica %d: %v", rank, err)
	}
	t.Cleanup(func() { stub.Close() })
	return stub
}

func TestHeartbeatRPC(t *testing.T) {
	cfg := testConfig("7301")
	newTestReplica(t, 0, cfg)
	stub := dialReplica(t, cfg, 0)

	var res models.NoParam
	if err := stub.Call("Replica.HeartbeatRPC", models.NoParam{}, &res); err != nil {
		t.Errorf("HeartbeatRPC returned error: %v", err)
	}
}

func TestCreateAccountPropagatesToBackup(t *testing.T) {
	cfg := testConfig("7311", "7312")
	newTestReplica(t, 0, cfg)
	backup := newTestReplica(t, 1, cfg)
	stub := dialReplica(t, cfg, 0)

	var res models.ServerResponse
	err := stub.Call("Replica.CreateAccountRPC", models.Credentials{Username: "alice", Password: "pw"}, &res)
	if err != nil {
		t.Fatalf("CreateAccountRPC returned error: %v", err)
	}
	if res.Error {
		t.Fatalf("CreateAccountRPC reported failure: %v", res.Message)
	}

	time.Sleep(200 * time.Millisecond) // propagation is synchronous but give the backup's handler time
	accounts, err := backup.store.ListAccounts("^alice$")
	if err != nil {
		t.Fatalf("Backup store scan failed: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected account propagated to backup, got %v", accounts)
	}
}

func TestPropagationContinuesPastDeadBackup(t *testing.T) {
	cfg := testConfig("7321", "7322", "7323")
	newTestReplica(t, 0, cfg)
	// rank 1 is never started
	last := newTestReplica(t, 2, cfg)
	stub := dialReplica(t, cfg, 0)

	var res models.ServerResponse
	err := stub.Call("Replica.CreateAccountRPC", models.Credentials{Username: "alice", Password: "pw"}, &res)
	if err != nil {
		t.Fatalf("CreateAccountRPC returned error: %v", err)
	}
	if res.Error {
		t.Fatalf("CreateAccountRPC reported failure despite dead backup: %v", res.Message)
	}

	time.Sleep(200 * time.Millisecond)
	accounts, err := last.store.ListAccounts("^alice$")
	if err != nil {
		t.Fatalf("Store scan failed: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected fan-out to reach the replica after the dead one, got %v", accounts)
	}
}

func TestDuplicatePropagationIsIdempotent(t *testing.T) {
	cfg := testConfig("7331", "7332")
	newTestReplica(t, 0, cfg)
	backup := newTestReplica(t, 1, cfg)

	// the backup already has the account, as if an earlier propagation
	// of the same request had been applied
	if err := backup.store.CreateAccount("alice", "pw"); err != nil {
		t.Fatalf("Backup pre-insert failed: %v", err)
	}

	stub := dialReplica(t, cfg, 0)
	var res models.ServerResponse
	err := stub.Call("Replica.CreateAccountRPC", models.Credentials{Username: "alice", Password: "pw"}, &res)
	if err != nil {
		t.Fatalf("CreateAccountRPC returned error: %v", err)
	}
	if res.Error {
		t.Fatalf("Primary reported failure: %v", res.Message)
	}

	var res2 models.ServerResponse
	err = stub.Call("Replica.CreateAccountRPC", models.Credentials{Username: "bob", Password: "pw"}, &res2)
	if err != nil || res2.Error {
		t.Fatalf("Fan-out broke after duplicate on backup: err=%v res=%v", err, res2.Message)
	}

	time.Sleep(200 * time.Millisecond)
	accounts, err := backup.store.ListAccounts(".*")
	if err != nil {
		t.Fatalf("Backup store scan failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Errorf("Expected [alice bob] on backup, got %v", accounts)
	}
}

func TestSendAndFetchMessages(t *testing.T) {
	cfg := testConfig("7341")
	newTestReplica(t, 0, cfg)
	stub := dialReplica(t, cfg, 0)

	var res models.ServerResponse
	stub.Call("Replica.CreateAccountRPC", models.Credentials{Username: "alice", Password: "pw"}, &res)
	stub.Call("Replica.CreateAccountRPC", models.Credentials{Username: "bob", Password: "pw"}, &res)
	stub.Call("Replica.LoginRPC", models.Credentials{Username: "alice", Password: "pw"}, &res)
	stub.Call("Replica.LoginRPC", models.Credentials{Username: "bob", Password: "pw"}, &res)

	err := stub.Call("Replica.SendMessageRPC",
		models.MessageInfo{Source: "alice", Destination: "bob", Text: "hello"}, &res)
	if err != nil || res.Error {
		t.Fatalf("SendMessageRPC failed: err=%v res=%v", err, res.Message)
	}

	var batch models.MessageBatch
	err = stub.Call("Replica.FetchMessagesRPC", models.ListenArguments{Username: "bob"}, &batch)
	if err != nil {
		t.Fatalf("FetchMessagesRPC returned error: %v", err)
	}
	if !batch.Active || len(batch.Messages) != 1 || batch.Messages[0].Text != "hello" {
		t.Errorf("Expected active batch [hello], got active=%v %v", batch.Active, batch.Messages)
	}
}

func TestBlockedFetchEndsOnLogout(t *testing.T) {
	cfg := testConfig("7351")
	newTestReplica(t, 0, cfg)
	stub := dialReplica(t, cfg, 0)
	other := dialReplica(t, cfg, 0)

	var res models.ServerResponse
	stub.Call("Replica.CreateAccountRPC", models.Credentials{Username: "bob", Password: "pw"}, &res)
	stub.Call("Replica.LoginRPC", models.Credentials{Username: "bob", Password: "pw"}, &res)

	var batch models.MessageBatch
	done := make(chan *rpc.Call, 1)
	stub.Go("Replica.FetchMessagesRPC", models.ListenArguments{Username: "bob"}, &batch, done)

	time.Sleep(200 * time.Millisecond) // let the fetch block on the empty mailbox
	if err := other.Call("Replica.LogoutRPC", models.Credentials{Username: "bob"}, &res); err != nil {
		t.Fatalf("LogoutRPC returned error: %v", err)
	}

	select {
	case call := <-done:
		if call.Error != nil {
			t.Fatalf("FetchMessagesRPC returned error: %v", call.Error)
		}
		if batch.Active {
			t.Error("Expected inactive batch after logout")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("FetchMessagesRPC did not return after logout")
	}
}

func TestPromotedBackupServesItsOwnState(t *testing.T) {
	cfg := testConfig("7361", "7362")
	primary := newTestReplica(t, 0, cfg)
	backup := newTestReplica(t, 1, cfg)
	backup.Run()

	// a mutation the primary applied only locally, never propagated:
	// the backup's store legitimately diverges
	if err := primary.store.CreateAccount("alice", "pw"); err != nil {
		t.Fatalf("Primary-only insert failed: %v", err)
	}

	primary.Close()

	deadline := time.Now().Add(3 * time.Second)
	for !backup.IsPrimary() {
		if time.Now().After(deadline) {
			t.Fatal("Backup was not promoted after primary shutdown")
		}
		time.Sleep(50 * time.Millisecond)
	}

	stub := dialReplica(t, cfg, 1)
	var res models.ServerResponse
	stub.Call("Replica.CreateAccountRPC", models.Credentials{Username: "bob", Password: "pw"}, &res)
	stub.Call("Replica.LoginRPC", models.Credentials{Username: "bob", Password: "pw"}, &res)

	// alice only ever existed on the dead primary
	err := stub.Call("Replica.SendMessageRPC",
		models.MessageInfo{Source: "bob", Destination: "alice", Text: "hi"}, &res)
	if err != nil {
		t.Fatalf("SendMessageRPC returned error: %v", err)
	}
	if !res.Error {
		t.Error("Expected send to unknown destination to fail on the promoted backup")
	}
}
