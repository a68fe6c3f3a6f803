package cron

import (
	"Storefront/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine         *cron.Cron
	productViewJob *job.ProductViewJob
	viewFlushSpec  string
}

func NewCronManager(productViewJob *job.ProductViewJob, viewFlushSpec string) *Manager {
	return &Manager{
		engine:         cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		productViewJob: productViewJob,
		viewFlushSpec:  viewFlushSpec,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.viewFlushSpec, s.productViewJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	s.engine.Start()
}

// Stop 等待运行中的任务结束
func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
