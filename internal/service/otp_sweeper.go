package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = time.Minute

// OTPSweeper periodically deletes expired OTP records
type OTPSweeper struct {
	cron *cron.Cron
	otp  *OTPService
	log  *zap.Logger
}

// NewOTPSweeper schedules the sweep with a cron spec such as "@every 10m"
func NewOTPSweeper(otp *OTPService, schedule string, log *zap.Logger) (*OTPSweeper, error) {
	s := &OTPSweeper{
		cron: cron.New(),
		otp:  otp,
		log:  log.Named("otp-sweeper"),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("schedule otp sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background
func (s *OTPSweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *OTPSweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *OTPSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.otp.Sweep(ctx)
	if err != nil {
		s.log.Error("sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("expired otps removed", zap.Int64("count", n))
	}
}
