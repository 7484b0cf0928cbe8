package jobs

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"chatwave-api/models"
)

// RequestCleanupJob handles periodic pruning of resolved friend request
// mirrors. Rejected and long-accepted copies carry no state the engines
// still read; only pending rows matter.
type RequestCleanupJob struct {
	db        *gorm.DB
	retention time.Duration
	ticker    *time.Ticker
	done      chan bool
}

// NewRequestCleanupJob creates a new request cleanup job
func NewRequestCleanupJob(db *gorm.DB, interval, retention time.Duration) *RequestCleanupJob {
	return &RequestCleanupJob{
		db:        db,
		retention: retention,
		ticker:    time.NewTicker(interval),
		done:      make(chan bool),
	}
}

// Start begins the cleanup job
func (j *RequestCleanupJob) Start() {
	fmt.Println("Friend request cleanup job started")

	go func() {
		// Run immediately on start
		j.cleanup()

		// Then run on schedule
		for {
			select {
			case <-j.ticker.C:
				j.cleanup()
			case <-j.done:
				fmt.Println("Friend request cleanup job stopped")
				return
			}
		}
	}()
}

// Stop stops the cleanup job
func (j *RequestCleanupJob) Stop() {
	j.ticker.Stop()
	j.done <- true
}

// cleanup performs the actual cleanup
func (j *RequestCleanupJob) cleanup() {
	cutoff := time.Now().Add(-j.retention)

	res := j.db.
		Where("status <> ? AND updated_at < ?", models.FriendRequestStatusPending, cutoff).
		Delete(&models.FriendRequest{})
	if res.Error != nil {
		fmt.Printf("Error during friend request cleanup: %v\n", res.Error)
		return
	}

	if res.RowsAffected > 0 {
		fmt.Printf("Friend request cleanup removed %d resolved mirrors\n", res.RowsAffected)
	}
}
