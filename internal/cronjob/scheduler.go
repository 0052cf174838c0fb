package cronjob

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/devin-clone/core-backend/internal/users"
)

type Scheduler struct {
	users *users.Repo
	cron  *cron.Cron
}

func NewScheduler(userRepo *users.Repo) *Scheduler {
	return &Scheduler{users: userRepo, cron: cron.New(cron.WithSeconds())}
}

// Start registers the nightly maintenance jobs and kicks off the cron loop.
func (s *Scheduler) Start() {
	// (12:00 AM)
	_, err := s.cron.AddFunc("0 0 0 * * *", func() {
		s.resetTokenUsage()
	})
	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	log.Println("Cron scheduler started (token usage reset nightly at 12:00AM)")
	s.cron.Start()
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) resetTokenUsage() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.users.ResetExpiredTokenUsage(ctx)
	if err != nil {
		log.Printf("Token usage reset failed: %v", err)
		return
	}
	log.Printf("Token usage reset for %d users at: %s", n, time.Now().Format(time.RFC1123))
}
