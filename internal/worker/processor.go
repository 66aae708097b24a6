package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"cp360/internal/domain/model"
	"cp360/internal/infra/queue"
	"cp360/internal/repository"
)

// リトライ間隔の基数。配送回数に比例して伸びる。
const retryBaseDelay = 60 * time.Second

// 処理結果の分類。ackの仕方がそれぞれ違う。
type Outcome int

const (
	OutcomeSuccess  Outcome = iota // Ack
	OutcomeSkipped                 // Ack（処理対象なし）
	OutcomeTerminal                // Term（再配送しても無駄）
	OutcomeRetry                   // NakWithDelay
)

// queueから受けたジョブを処理する。
type Processor struct {
	videos repository.ProductVideoRepository
}

func NewProcessor(videos repository.ProductVideoRepository) *Processor {
	return &Processor{videos: videos}
}

// ジョブ1件の処理本体。ack操作は呼び出し側（Run）が行う。
func (p *Processor) Process(ctx context.Context, msg model.VideoJobMessage) (model.VideoJobResult, Outcome) {
	video, err := p.videos.FindByID(ctx, msg.ProductVideoID)
	if errors.Is(err, repository.ErrNotFound) {
		//行が消えている。リトライしても復活しない。
		return model.VideoJobResult{
			Status:         "error",
			Reason:         "product video not found",
			ProductVideoID: msg.ProductVideoID,
		}, OutcomeTerminal
	}
	if err != nil {
		//DB障害などの一時的エラーは再配送に回す
		return model.VideoJobResult{
			Status:         "error",
			Reason:         err.Error(),
			ProductVideoID: msg.ProductVideoID,
		}, OutcomeRetry
	}

	if video.FileKey == "" {
		return model.VideoJobResult{
			Status:         "skipped",
			Reason:         "no file attached",
			ProductVideoID: video.ID,
			ProductID:      video.ProductID,
		}, OutcomeSkipped
	}

	return model.VideoJobResult{
		Status:         "success",
		ProductVideoID: video.ID,
		ProductID:      video.ProductID,
		FilePath:       video.FileKey,
		FileSize:       video.SizeBytes,
	}, OutcomeSuccess
}

// 受信ループ。チャネルが閉じるかctxキャンセルで抜ける。
func (p *Processor) Run(ctx context.Context, msgs <-chan *queue.ConsumeMessage) {
	log.Printf("[worker] processor started")

	for {
		select {
		case <-ctx.Done():
			log.Printf("[worker] processor stopped")
			return
		case m, ok := <-msgs:
			if !ok {
				log.Printf("[worker] message channel closed")
				return
			}
			p.handle(ctx, m)
		}
	}
}

func (p *Processor) handle(ctx context.Context, m *queue.ConsumeMessage) {
	result, outcome := p.Process(ctx, m.Job)

	data, _ := json.Marshal(result)
	log.Printf("[worker] job %s (attempt %d): %s", m.Job.JobID, m.DeliveryCount, data)

	switch outcome {
	case OutcomeSuccess, OutcomeSkipped:
		if err := m.Ack(); err != nil {
			log.Printf("[worker] ack job %s: %v", m.Job.JobID, err)
		}
	case OutcomeTerminal:
		if err := m.Term(); err != nil {
			log.Printf("[worker] term job %s: %v", m.Job.JobID, err)
		}
	case OutcomeRetry:
		delay := retryBaseDelay * time.Duration(m.DeliveryCount)
		log.Printf("[worker] job %s will retry in %s", m.Job.JobID, delay)
		if err := m.NakWithDelay(delay); err != nil {
			log.Printf("[worker] nak job %s: %v", m.Job.JobID, err)
		}
	}
}
