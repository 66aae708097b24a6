package worker

import (
	"context"
	"log"
	"time"

	"cp360/internal/domain/model"
	"cp360/internal/repository"
)

// queueへの投入口。実体はinfra/queueのJetStreamクライアント。
type JobPublisher interface {
	Publish(ctx context.Context, msg model.VideoJobMessage) error
}

// outboxのpending行を定期的に拾ってqueueへ流す。
// publishに失敗した行はpendingのまま残り、次のtickで再試行される。
type Dispatcher struct {
	jobs      repository.VideoJobRepository
	publisher JobPublisher
	interval  time.Duration
	batchSize int
}

func NewDispatcher(jobs repository.VideoJobRepository, publisher JobPublisher) *Dispatcher {
	return &Dispatcher{
		jobs:      jobs,
		publisher: publisher,
		interval:  3 * time.Second,
		batchSize: 50,
	}
}

// ctxがキャンセルされるまでポーリングし続ける。
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	log.Printf("[dispatcher] started, polling every %s", d.interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[dispatcher] stopped")
			return
		case <-ticker.C:
			if err := d.DispatchOnce(ctx); err != nil {
				log.Printf("[dispatcher] dispatch: %v", err)
			}
		}
	}
}

// pending行を1バッチ分publishしてdispatchedに更新する。
func (d *Dispatcher) DispatchOnce(ctx context.Context) error {
	pending, err := d.jobs.ListPending(ctx, d.batchSize)
	if err != nil {
		return err
	}

	for _, job := range pending {
		msg := model.VideoJobMessage{
			JobID:          job.ID,
			ProductVideoID: job.ProductVideoID,
		}
		if err := d.publisher.Publish(ctx, msg); err != nil {
			//失敗した行は触らない。次のtickで再試行。
			log.Printf("[dispatcher] publish job %s: %v", job.ID, err)
			continue
		}
		if err := d.jobs.MarkDispatched(ctx, job.ID, time.Now()); err != nil {
			//publish済みなのでworker側には届く。重複配送はat-least-onceの範囲内。
			log.Printf("[dispatcher] mark dispatched %s: %v", job.ID, err)
		}
	}
	return nil
}
