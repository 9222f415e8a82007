package main

import (
	"fmt"
	"os"
	"path/filepath"

	"ReplicatedChat/chatdb"
	"ReplicatedChat/client"
	"ReplicatedChat/config"
	"ReplicatedChat/models"
	"ReplicatedChat/replica"

	"github.com/sirupsen/logrus"
)

// In-process demo cluster: three replicas on the default local ports,
// one sender and one listener, with the conversation printed as it
// flows.
func main() {
	cfg := config.Default()
	dir := "demo-data"
	if err := os.MkdirAll(dir, 0755); err != nil {
		logrus.Fatalf("Failed to create data directory: %v", err)
	}

	var replicas []*replica.Replica
	for rank := range cfg.Replicas {
		store, err := chatdb.Open(filepath.Join(dir, fmt.Sprintf("replica%d.db", rank)))
		if err != nil {
			logrus.Fatalf("Failed to open store for replica %d: %v", rank, err)
		}
		r, err := replica.NewReplica(rank, cfg, store)
		if err != nil {
			logrus.Fatalf("Failed to start replica %d: %v", rank, err)
		}
		r.Run()
		replicas = append(replicas, r)
	}
	defer func() {
		for _, r := range replicas {
			r.Close()
		}
	}()

	chat, err := client.NewChatClient(cfg)
	if err != nil {
		logrus.Fatalf("Failed to locate a primary: %v", err)
	}
	defer chat.Close()

	for _, u := range []string{"alice", "bob"} {
		res, err := chat.CreateAccount(u, "demo")
		if err != nil {
			logrus.Fatalf("CreateAccount(%v) failed: %v", u, err)
		}
		logrus.Info(res.Message)
		res, err = chat.Login(u, "demo")
		if err != nil {
			logrus.Fatalf("Login(%v) failed: %v", u, err)
		}
		logrus.Info(res.Message)
	}

	accounts, err := chat.ListAccounts(".*")
	if err != nil {
		logrus.Fatalf("ListAccounts failed: %v", err)
	}
	logrus.Infof("Known accounts: %s", accounts.Usernames)

	messageCh := make(chan models.MessageInfo, 10)
	go chat.ListenMessages("bob", messageCh)

	for i := 1; i <= 3; i++ {
		res, err := chat.SendMessage("alice", "bob", fmt.Sprintf("demo message %d", i))
		if err != nil {
			logrus.Fatalf("SendMessage failed: %v", err)
		}
		logrus.Info(res.Message)
	}

	received := 0
	for m := range messageCh {
		fmt.Printf("New message from %s: %s\n", m.Source, m.Text)
		received++
		if received == 3 {
			chat.Logout("bob")
		}
	}

	res, err := chat.Logout("alice")
	if err != nil {
		logrus.Fatalf("Logout failed: %v", err)
	}
	logrus.Info(res.Message)
}
