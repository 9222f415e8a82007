package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ReplicatedChat/chatdb"
	"ReplicatedChat/client"
	"ReplicatedChat/config"
	"ReplicatedChat/models"
	"ReplicatedChat/replica"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var messageCh = make(chan models.MessageInfo, 16)

func handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Warnf("Error upgrading to WebSocket: %v", err)
		return
	}
	defer conn.Close()
	logrus.Info("WebSocket connection established")

	for message := range messageCh {
		if err := conn.WriteJSON(message); err != nil {
			logrus.Warnf("Error writing to WebSocket: %v", err)
			return
		}
	}
}

// Whole-cluster chat demo behind a web API: three in-process replicas,
// one browser-facing user and a scripted peer that keeps the
// conversation alive.
func main() {
	fmt.Println("Enter username:")
	var username string
	fmt.Scanln(&username)

	cfg := config.Default()
	dir := "webchat-data"
	if err := os.MkdirAll(dir, 0755); err != nil {
		logrus.Fatalf("Failed to create data directory: %v", err)
	}

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
	}

	user, err := client.NewChatClient(cfg)
	if err != nil {
		logrus.Fatalf("Failed to locate a primary: %v", err)
	}

	// the scripted peer greets the user every few seconds so the
	// websocket always has traffic to show
	peer, err := client.NewChatClient(cfg)
	if err != nil {
		logrus.Fatalf("Failed to locate a primary for the peer: %v", err)
	}
	peer.CreateAccount("Other User", "peer")
	peer.Login("Other User", "peer")

	var listenOnce sync.Once
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			peer.SendMessage("Other User", username, "Hello from the other side!")
		}
	}()

	router := gin.Default()

	router.GET("/ws", handleWebSocket)

	router.GET("/get-username", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"value": username})
	})

	router.POST("/create-account", func(c *gin.Context) {
		var req struct {
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := user.CreateAccount(username, req.Password)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": res.Message, "error": res.Error})
	})

	router.POST("/login", func(c *gin.Context) {
		var req struct {
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := user.Login(username, req.Password)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if !res.Error {
			listenOnce.Do(func() {
				go user.ListenMessages(username, messageCh)
			})
		}
		c.JSON(http.StatusOK, gin.H{"message": res.Message, "error": res.Error})
	})

	router.POST("/logout", func(c *gin.Context) {
		res, err := user.Logout(username)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": res.Message, "error": res.Error})
	})

	router.POST("/delete-account", func(c *gin.Context) {
		var req struct {
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := user.DeleteAccount(username, req.Password)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": res.Message, "error": res.Error})
	})

	router.GET("/accounts", func(c *gin.Context) {
		pattern := c.DefaultQuery("pattern", ".*")
		res, err := user.ListAccounts(pattern)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"usernames": res.Usernames})
	})

	router.POST("/send", func(c *gin.Context) {
		var req struct {
			Recipient string `json:"recipient"`
			Message   string `json:"message"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		res, err := user.SendMessage(username, req.Recipient, req.Message)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": res.Message, "error": res.Error})
	})

	if err := router.Run(":8080"); err != nil {
		logrus.Fatalf("Failed to start router: %v", err)
	}
}
