package cron

import (
	"fmt"
	log "log/slog"
)

// InitCron 注册失败时不启动引擎
func InitCron(mgr *Manager) error {
	if err := mgr.RegisterJobs(); err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	mgr.Start()
	log.Info("Cron Jobs started", "product_view_flush", mgr.viewFlushSpec)
	return nil
}
