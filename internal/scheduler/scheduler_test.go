package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockJobs struct{ mock.Mock }

func (m *mockJobs) SweepExpired() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockJobs) SendReminders() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *mockJobs) Sweep() int {
	return m.Called().Int(0)
}

func TestScheduler_Jobs(t *testing.T) {
	jobs := &mockJobs{}
	jobs.On("SweepExpired").Return(int64(3), nil).Once()
	jobs.On("SendReminders").Return(0, errors.New("db down")).Once()
	jobs.On("Sweep").Return(1).Once()

	s := NewScheduler(Config{}, jobs, jobs, jobs)
	s.SweepOTPs()
	s.SendReminders()
	s.SweepLimiter()

	jobs.AssertExpectations(t)
}

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	jobs := &mockJobs{}
	s := NewScheduler(Config{OTPSweepSpec: "not a spec"}, jobs, jobs, nil)
	assert.Error(t, s.Start())
}

func TestScheduler_StartStop(t *testing.T) {
	jobs := &mockJobs{}
	s := NewScheduler(Config{}, jobs, jobs, nil)
	assert.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}
