package main

import (
	"context"
	"log"
	"os"
	"time"

	"relaygo/internal/api"
	"relaygo/internal/config"
	"relaygo/internal/msglog"
	"relaygo/internal/redis"
	"relaygo/internal/relay"
	"relaygo/internal/resume"
	"relaygo/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("RELAYGO_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("RELAYGO_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Create the message log table if it is not there yet.
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("create redis client: %v", err)
	}
	defer rdb.Close()

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	hub := relay.NewHub(msglog.New(db))
	go hub.Run(hubCtx)

	resumeStore := resume.NewStore(rdb, time.Duration(cfg.BasicConfig.ResumeTTL)*time.Second)

	clientPage := cfg.BasicConfig.ClientPage
	if clientPage == "" {
		clientPage = "./client/index.html"
	}
	handlers := api.NewHandler(hub, resumeStore, clientPage)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
