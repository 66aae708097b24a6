package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"cp360/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type jobRepoMock struct{ mock.Mock }

func (m *jobRepoMock) Create(ctx context.Context, job model.VideoJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *jobRepoMock) ListPending(ctx context.Context, limit int) ([]model.VideoJob, error) {
	args := m.Called(ctx, limit)
	jobs, _ := args.Get(0).([]model.VideoJob)
	return jobs, args.Error(1)
}

func (m *jobRepoMock) MarkDispatched(ctx context.Context, jobID string, now time.Time) error {
	args := m.Called(ctx, jobID, now)
	return args.Error(0)
}

type publisherMock struct{ mock.Mock }

func (m *publisherMock) Publish(ctx context.Context, msg model.VideoJobMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func TestDispatcher_DispatchOnce_PublishesAndMarks(t *testing.T) {
	jobs := new(jobRepoMock)
	pub := new(publisherMock)
	d := NewDispatcher(jobs, pub)

	pending := []model.VideoJob{
		{ID: "job-1", ProductVideoID: 10, Status: model.VideoJobPending},
		{ID: "job-2", ProductVideoID: 11, Status: model.VideoJobPending},
	}
	jobs.On("ListPending", mock.Anything, 50).Return(pending, nil)
	pub.On("Publish", mock.Anything, model.VideoJobMessage{JobID: "job-1", ProductVideoID: 10}).Return(nil)
	pub.On("Publish", mock.Anything, model.VideoJobMessage{JobID: "job-2", ProductVideoID: 11}).Return(nil)
	jobs.On("MarkDispatched", mock.Anything, "job-1", mock.Anything).Return(nil)
	jobs.On("MarkDispatched", mock.Anything, "job-2", mock.Anything).Return(nil)

	err := d.DispatchOnce(context.Background())
	assert.NoError(t, err)

	jobs.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestDispatcher_DispatchOnce_FailedPublishStaysPending(t *testing.T) {
	jobs := new(jobRepoMock)
	pub := new(publisherMock)
	d := NewDispatcher(jobs, pub)

	pending := []model.VideoJob{
		{ID: "job-1", ProductVideoID: 10, Status: model.VideoJobPending},
		{ID: "job-2", ProductVideoID: 11, Status: model.VideoJobPending},
	}
	jobs.On("ListPending", mock.Anything, 50).Return(pending, nil)

	// job-1のpublishは失敗する。MarkDispatchedは呼ばれない。
	pub.On("Publish", mock.Anything, model.VideoJobMessage{JobID: "job-1", ProductVideoID: 10}).Return(errors.New("nats down"))
	pub.On("Publish", mock.Anything, model.VideoJobMessage{JobID: "job-2", ProductVideoID: 11}).Return(nil)
	jobs.On("MarkDispatched", mock.Anything, "job-2", mock.Anything).Return(nil)

	err := d.DispatchOnce(context.Background())
	assert.NoError(t, err)

	jobs.AssertNotCalled(t, "MarkDispatched", mock.Anything, "job-1", mock.Anything)
	jobs.AssertExpectations(t)
}

func TestDispatcher_DispatchOnce_ListError(t *testing.T) {
	jobs := new(jobRepoMock)
	pub := new(publisherMock)
	d := NewDispatcher(jobs, pub)

	jobs.On("ListPending", mock.Anything, 50).Return(nil, errors.New("db error"))

	err := d.DispatchOnce(context.Background())
	assert.Error(t, err)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
