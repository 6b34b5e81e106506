package main

import (
	"log"
	"sync"
	"time"
)

const (
	rewardQueueSize   = 256
	rewardMaxAttempts = 3
	rewardBackoff     = 500 * time.Millisecond
)

// RewardService credits tokens to an account's wallet. Implementations
// may talk to a ledger table or an external service; either way a failed
// award never touches in-game score, which is already applied.
type RewardService interface {
	AwardTokens(accountID int64, amount int, reason string) (txRef string, err error)
}

// RewardNotice reports a permanently failed award so the owning player
// can be told.
type RewardNotice struct {
	PlayerID string
	Amount   int
	Reason   string
}

type rewardJob struct {
	accountID int64
	playerID  string
	amount    int
	reason    string
}

// RewardDispatcher queues awards and delivers them asynchronously with
// bounded retries. A nil dispatcher discards awards, which keeps tests
// that don't care about tokens simple.
type RewardDispatcher struct {
	svc    RewardService
	notify func(RewardNotice)
	queue  chan rewardJob
	stop   chan struct{}
	wg     sync.WaitGroup
}

func NewRewardDispatcher(svc RewardService, notify func(RewardNotice)) *RewardDispatcher {
	d := &RewardDispatcher{
		svc:    svc,
		notify: notify,
		queue:  make(chan rewardJob, rewardQueueSize),
		stop:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// Award queues one token award. Non-blocking; guests (accountID 0) are
// skipped because they have no wallet.
func (d *RewardDispatcher) Award(accountID int64, playerID string, amount int, reason string) {
	if d == nil || accountID <= 0 || amount <= 0 {
		return
	}
	select {
	case d.queue <- rewardJob{accountID: accountID, playerID: playerID, amount: amount, reason: reason}:
	default:
		log.Printf("rewards: queue full, dropping %d tokens for account %d", amount, accountID)
	}
}

func (d *RewardDispatcher) Stop() {
	if d == nil {
		return
	}
	close(d.stop)
	d.wg.Wait()
}

func (d *RewardDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.queue:
			d.deliver(job)
		case <-d.stop:
			// Drain without closing the queue: a producer racing Stop
			// must never hit a closed channel.
			for {
				select {
				case job := <-d.queue:
					d.deliver(job)
				default:
					return
				}
			}
		}
	}
}

func (d *RewardDispatcher) deliver(job rewardJob) {
	var err error
	for attempt := 1; attempt <= rewardMaxAttempts; attempt++ {
		var ref string
		ref, err = d.svc.AwardTokens(job.accountID, job.amount, job.reason)
		if err == nil {
			_ = ref
			return
		}
		time.Sleep(rewardBackoff * time.Duration(attempt))
	}
	metricRewardFailures.Inc()
	log.Printf("rewards: giving up on %d tokens for account %d: %v", job.amount, job.accountID, err)
	if d.notify != nil {
		d.notify(RewardNotice{PlayerID: job.playerID, Amount: job.amount, Reason: job.reason})
	}
}

// LedgerRewardService credits tokens against the local SQLite ledger.
type LedgerRewardService struct {
	db *DB
}

func NewLedgerRewardService(db *DB) *LedgerRewardService {
	return &LedgerRewardService{db: db}
}

func (s *LedgerRewardService) AwardTokens(accountID int64, amount int, reason string) (string, error) {
	txRef := GenerateID(8)
	if s.db == nil {
		return txRef, nil
	}
	if err := s.db.InsertReward(txRef, accountID, amount, reason); err != nil {
		return "", err
	}
	return txRef, nil
}
