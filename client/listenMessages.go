package client

import (
	"time"

	"ReplicatedChat/models"
)

// retryBackoff spaces out reconnection attempts once every configured
// replica has been tried.
const retryBackoff = 250 * time.Millisecond

// ListenMessages streams messages for username into messageCh until the
// account logs out (or is deleted), then closes the channel. The stream
// is a long-poll loop: each FetchMessagesRPC call blocks on the replica
// until messages arrive. No timeout applies to the blocked call; a
// failure means the replica went away, in which case the client
// advances its failover pointer and re-issues the fetch against the
// next replica, wrapping around the list indefinitely. Messages the
// dead replica claimed but never returned are gone with its store; a
// message may also arrive again from another replica's mailbox.
func (c *ChatClient) ListenMessages(username string, messageCh chan<- models.MessageInfo) {
	defer close(messageCh)

	for {
		stub, err := c.activeStub()
		if err != nil {
			c.advanceReplica()
			time.Sleep(retryBackoff)
			continue
		}

		var batch models.MessageBatch
		err = stub.Call("Replica.FetchMessagesRPC", models.ListenArguments{Username: username}, &batch)
		if err != nil {
			c.logger.Warnf("Message stream to replica %d broke: %v", c.PrimaryIndex(), err)
			c.advanceReplica()
			time.Sleep(retryBackoff)
			continue
		}

		if !batch.Active {
			return
		}
		for _, m := range batch.Messages {
			messageCh <- m
		}
	}
}
