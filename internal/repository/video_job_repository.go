package repository

import (
	"context"
	"time"

	"cp360/internal/domain/model"
)

// 動画処理ジョブ（outbox行）の永続化を約束。
type VideoJobRepository interface {
	Create(ctx context.Context, job model.VideoJob) error
	//pendingの行を古い順で返す（dispatcherのポーリング用）。
	ListPending(ctx context.Context, limit int) ([]model.VideoJob, error)
	MarkDispatched(ctx context.Context, jobID string, now time.Time) error
}
