package scheduler

import (
	"github.com/ikkim/bloodlink-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// OTPSweeper purges expired and used codes.
type OTPSweeper interface {
	SweepExpired() (int64, error)
}

// ReminderSender notifies donors about tomorrow's appointments.
type ReminderSender interface {
	SendReminders() (int, error)
}

// LimiterSweeper drops idle rate limiter entries.
type LimiterSweeper interface {
	Sweep() int
}

type Config struct {
	OTPSweepSpec string
	ReminderSpec string
	// LimiterSweepSpec defaults to every ten minutes.
	LimiterSweepSpec string
}

// Scheduler runs the background maintenance jobs.
type Scheduler struct {
	cron      *cron.Cron
	cfg       Config
	otp       OTPSweeper
	reminders ReminderSender
	limiter   LimiterSweeper
}

// NewScheduler limiter may be nil.
func NewScheduler(cfg Config, otp OTPSweeper, reminders ReminderSender, limiter LimiterSweeper) *Scheduler {
	if cfg.OTPSweepSpec == "" {
		cfg.OTPSweepSpec = "*/15 * * * *"
	}
	if cfg.ReminderSpec == "" {
		cfg.ReminderSpec = "0 8 * * *"
	}
	if cfg.LimiterSweepSpec == "" {
		cfg.LimiterSweepSpec = "*/10 * * * *"
	}
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		cfg:       cfg,
		otp:       otp,
		reminders: reminders,
		limiter:   limiter,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"otp_sweep", s.cfg.OTPSweepSpec, s.SweepOTPs},
		{"appointment_reminders", s.cfg.ReminderSpec, s.SendReminders},
	}
	if s.limiter != nil {
		jobs = append(jobs, struct {
			name string
			spec string
			run  func()
		}{"rate_limiter_sweep", s.cfg.LimiterSweepSpec, s.SweepLimiter})
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			logger.Error("Failed to add cron job", err, map[string]interface{}{
				"job":  job.name,
				"spec": job.spec,
			})
			return err
		}
	}

	s.cron.Start()
	logger.Info("Scheduler started", map[string]interface{}{
		"otp_sweep":             s.cfg.OTPSweepSpec,
		"appointment_reminders": s.cfg.ReminderSpec,
	})
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	logger.Info("Stopping scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Scheduler stopped")
}

func (s *Scheduler) SweepOTPs() {
	removed, err := s.otp.SweepExpired()
	if err != nil {
		logger.Error("Scheduled OTP sweep failed", err)
		return
	}
	logger.Info("Scheduled OTP sweep finished", map[string]interface{}{
		"removed": removed,
	})
}

func (s *Scheduler) SendReminders() {
	sent, err := s.reminders.SendReminders()
	if err != nil {
		logger.Error("Scheduled appointment reminders failed", err)
		return
	}
	logger.Info("Scheduled appointment reminders sent", map[string]interface{}{
		"sent": sent,
	})
}

func (s *Scheduler) SweepLimiter() {
	if s.limiter == nil {
		return
	}
	if removed := s.limiter.Sweep(); removed > 0 {
		logger.Debug("Rate limiter entries dropped", map[string]interface{}{
			"removed": removed,
		})
	}
}
