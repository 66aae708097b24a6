package model

import "time"

type VideoJobStatus string

const (
	VideoJobPending    VideoJobStatus = "pending"
	VideoJobDispatched VideoJobStatus = "dispatched"
)

// 動画処理ジョブのoutbox行。
// ProductVideoと同一トランザクションで作成し、dispatcherが拾ってqueueへ流す。
// enqueue失敗でジョブを失わないための仕組み。
type VideoJob struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	ProductVideoID int64          `gorm:"not null;index" json:"product_video_id"`
	Status         VideoJobStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	DispatchedAt   *time.Time     `json:"dispatched_at"`
}

func (VideoJob) TableName() string { return "video_jobs" }

// queueに載せるメッセージ本体。
type VideoJobMessage struct {
	JobID          string `json:"job_id"`
	ProductVideoID int64  `json:"product_video_id"`
}

// workerが返す処理結果。
type VideoJobResult struct {
	Status         string `json:"status"` // success / skipped / error
	Reason         string `json:"reason,omitempty"`
	ProductVideoID int64  `json:"product_video_id"`
	ProductID      int64  `json:"product_id,omitempty"`
	FilePath       string `json:"file_path,omitempty"`
	FileSize       int64  `json:"file_size,omitempty"`
}
