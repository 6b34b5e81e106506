package main

import (
	"log"
	"sync"
	"time"
)

const (
	recorderQueueSize   = 256
	recorderMaxAttempts = 3
	recorderBackoff     = 500 * time.Millisecond
)

// SessionRecord is the durable summary of one finished session
type SessionRecord struct {
	SessionID string
	Mode      int
	MapID     string
	Duration  float64
	Reason    string
	Players   int
}

// SessionPlayerRecord is one player's final standing in a session
type SessionPlayerRecord struct {
	SessionID string
	PlayerID  string
	AccountID int64
	Name      string
	Aircraft  int
	Rank      int
	Score     int
	Kills     int
	Deaths    int
}

type recorderJob struct {
	name string
	fn   func(*DB) error
}

// Recorder persists game results off the tick loop. Writes are queued,
// retried a few times with backoff, then dropped with a log line. A nil
// Recorder is valid and discards everything.
type Recorder struct {
	db   *DB
	jobs chan recorderJob
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRecorder creates and starts the background writer
func NewRecorder(db *DB) *Recorder {
	r := &Recorder{
		db:   db,
		jobs: make(chan recorderJob, recorderQueueSize),
		stop: make(chan struct{}),
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

// Enqueue schedules a write without blocking the caller. A full queue
// drops the job.
func (r *Recorder) Enqueue(name string, fn func(*DB) error) {
	if r == nil || r.db == nil {
		return
	}
	select {
	case r.jobs <- recorderJob{name: name, fn: fn}:
	default:
		log.Printf("recorder: queue full, dropping %s", name)
	}
}

// Stop drains the queue and shuts the writer down
func (r *Recorder) Stop() {
	if r == nil {
		return
	}
	close(r.stop)
	r.wg.Wait()
}

func (r *Recorder) writer() {
	defer r.wg.Done()
	for {
		select {
		case job := <-r.jobs:
			r.run(job)
		case <-r.stop:
			// Drain without closing the queue: a producer racing Stop
			// must never hit a closed channel.
			for {
				select {
				case job := <-r.jobs:
					r.run(job)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) run(job recorderJob) {
	var err error
	for attempt := 1; attempt <= recorderMaxAttempts; attempt++ {
		if err = job.fn(r.db); err == nil {
			return
		}
		time.Sleep(recorderBackoff * time.Duration(attempt))
	}
	log.Printf("recorder: %s failed after %d attempts: %v", job.name, recorderMaxAttempts, err)
}

// RecordSessionEnd persists the session summary, every player's row and
// the per-account stat updates.
func (r *Recorder) RecordSessionEnd(rec SessionRecord, rows []SessionPlayerRecord) {
	r.Enqueue("session_end", func(db *DB) error {
		if err := db.RecordSession(rec); err != nil {
			return err
		}
		for _, row := range rows {
			if err := db.RecordSessionPlayer(row); err != nil {
				return err
			}
			if row.AccountID > 0 {
				won := row.Rank == 1
				if err := db.UpdateStatsAfterSession(row.AccountID, row.Kills, row.Deaths, row.Score, won, rec.Duration); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// UnlockAchievement persists a permanent unlock for an account
func (r *Recorder) UnlockAchievement(accountID int64, achievementID string) {
	r.Enqueue("achievement", func(db *DB) error {
		return db.UnlockAchievement(accountID, achievementID)
	})
}
