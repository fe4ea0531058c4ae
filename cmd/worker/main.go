package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusevents/internal/config"
	"campusevents/internal/queue"
	"campusevents/internal/store"
	"campusevents/internal/workflow"
)

// Worker consumes queue messages to keep the Redis registration counters
// fresh, and periodically transitions past active events to completed.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	records := workflow.NewSQLStore(db.Client)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "campus:events")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	log.Println("worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("worker stopped")
			return

		case <-ticker.C:
			n, err := records.CompletePastEvents(ctx, time.Now().UTC())
			if err != nil {
				log.Printf("complete past events failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("marked %d event(s) completed", n)
			}

		case msg, ok := <-messages:
			if !ok {
				log.Println("worker stopped")
				return
			}
			switch msg.Type {
			case queue.TypeRegistration:
				eventID := string(msg.Body)
				count, err := records.CountRegistrations(ctx, eventID)
				if err != nil {
					log.Printf("count registrations for %s failed: %v", eventID, err)
					continue
				}
				if err := redisClient.SetRegistrationCount(ctx, eventID, count); err != nil {
					log.Printf("counter refresh for %s failed: %v", eventID, err)
				}
			case queue.TypeAttendanceMarked:
				log.Printf("attendance recorded: %s", string(msg.Body))
			}
		}
	}
}
