package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"cp360/internal/domain/model"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName     = "VIDEO_JOBS"
	SubjectJobs    = "video.jobs.>"
	SubjectJobsNew = "video.jobs.new"
	ConsumerName   = "video-workers"
	defaultAckWait = 5 * time.Minute
	// 初回配送 + リトライ3回
	maxDeliverCount = 4
)

// 動画処理ジョブ用のJetStreamクライアント。
// dispatcherがPublishし、workerがSubscribeする。
type Client struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	stream   jetstream.Stream
	consumer jetstream.Consumer
	natsURL  string
}

func NewClient(natsURL string) *Client {
	return &Client{natsURL: natsURL}
}

// NATSに接続してstreamを用意する。
func (c *Client) Connect(ctx context.Context) error {
	nc, err := nats.Connect(c.natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	c.nc = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	c.js = js

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectJobs},
		Retention: jetstream.WorkQueuePolicy,
		MaxAge:    24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	c.stream = stream

	log.Printf("[queue] connected to NATS at %s, stream %s ready", c.natsURL, StreamName)
	return nil
}

// worker用のdurable consumerを作る。
func (c *Client) CreateConsumer(ctx context.Context) error {
	consumer, err := c.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          ConsumerName,
		Durable:       ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       defaultAckWait,
		MaxDeliver:    maxDeliverCount,
		FilterSubject: SubjectJobsNew,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	c.consumer = consumer
	return nil
}

// ジョブをqueueへ載せる（at-least-once）。
func (c *Client) Publish(ctx context.Context, msg model.VideoJobMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job message: %w", err)
	}

	ack, err := c.js.Publish(ctx, SubjectJobsNew, data)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}

	log.Printf("[queue] published job %s, sequence %d", msg.JobID, ack.Sequence)
	return nil
}

// ジョブを受け取るチャネルを返す。
func (c *Client) Subscribe(ctx context.Context) (<-chan *ConsumeMessage, error) {
	if c.consumer == nil {
		return nil, fmt.Errorf("consumer not initialized")
	}

	msgChan := make(chan *ConsumeMessage, 100)

	go func() {
		defer close(msgChan)

		iter, err := c.consumer.Messages()
		if err != nil {
			log.Printf("[queue] message iterator: %v", err)
			return
		}

		//キャンセルでiteratorを止め、Nextのブロックを解く
		stop := context.AfterFunc(ctx, iter.Stop)
		defer stop()
		defer iter.Stop()

		for {
			msg, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, jetstream.ErrMsgIteratorClosed) {
					return
				}
				log.Printf("[queue] fetch message: %v", err)
				continue
			}

			var jobMsg model.VideoJobMessage
			if err := json.Unmarshal(msg.Data(), &jobMsg); err != nil {
				log.Printf("[queue] unmarshal message: %v", err)
				_ = msg.Term()
				continue
			}

			deliveryCount := 1
			if meta, err := msg.Metadata(); err == nil && meta != nil {
				deliveryCount = int(meta.NumDelivered)
			}

			msgChan <- &ConsumeMessage{
				Job:           jobMsg,
				DeliveryCount: deliveryCount,
				msg:           msg,
			}
		}
	}()

	return msgChan, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}

// 受信メッセージとack操作のラッパ。
type ConsumeMessage struct {
	Job           model.VideoJobMessage
	DeliveryCount int
	msg           jetstream.Msg
}

// 処理成功。
func (m *ConsumeMessage) Ack() error {
	return m.msg.Ack()
}

// 時間を置いて再配送してもらう。
func (m *ConsumeMessage) NakWithDelay(delay time.Duration) error {
	return m.msg.NakWithDelay(delay)
}

// 再配送せず破棄する（terminal）。
func (m *ConsumeMessage) Term() error {
	return m.msg.Term()
}
