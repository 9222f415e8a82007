package main

import (
	"flag"
	"fmt"

	"ReplicatedChat/chatdb"
	"ReplicatedChat/config"
	"ReplicatedChat/replica"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "yaml replica topology file (default: three local replicas)")
	rank := flag.Int("rank", 0, "this replica's position in the topology, 0 = highest priority")
	dbPath := flag.String("db", "", "sqlite database file (default: chat-replica-<rank>.db)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.ReadConfig(*configPath)
		if err != nil {
			logrus.Fatalf("Failed to load config: %v", err)
		}
	}

	path := *dbPath
	if path == "" {
		path = fmt.Sprintf("chat-replica-%d.db", *rank)
	}

	store, err := chatdb.Open(path)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}

	r, err := replica.NewReplica(*rank, cfg, store)
	if err != nil {
		logrus.Fatalf("Failed to start replica: %v", err)
	}
	r.Run()

	select {}
}
