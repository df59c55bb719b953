package router

import (
	"fmt"

	"github.com/cloudwego/hertz/pkg/common/hlog"

	"quick-swgoh/pkg/common/config"
	historymodel "quick-swgoh/pkg/core/history/model"
	"quick-swgoh/pkg/core/history/repository/dao"
	historyimpl "quick-swgoh/pkg/core/history/repository/dao/impl"
	"quick-swgoh/pkg/core/lookup/backend"
	"quick-swgoh/pkg/core/lookup/output"
	"quick-swgoh/pkg/core/lookup/service"
	"quick-swgoh/pkg/core/session"
)

// BuildDependencies 按配置组装后端客户端、审计仓储与桥接服务
func BuildDependencies(cfg *config.Config) (Dependencies, error) {
	api, err := backend.New(cfg.Backend)
	if err != nil {
		return Dependencies{}, err
	}

	var history dao.HistoryRepository = historyimpl.NopHistoryRepository{}
	if cfg.Database.Enabled {
		db, err := cfg.InitDB()
		if err != nil {
			return Dependencies{}, fmt.Errorf("init database: %w", err)
		}
		if err := historymodel.AutoMigrate(db); err != nil {
			return Dependencies{}, fmt.Errorf("migrate lookup_records: %w", err)
		}
		history = historyimpl.NewGormHistoryRepository(db)
		hlog.Infof("lookup history stored in %s@%s", cfg.Database.DBName, cfg.Database.Host)
	}

	verifier := session.NewVerifier(cfg.Middleware.Session.Secret, cfg.Middleware.Session.SigningMethod)
	bridge := service.NewBridge(api, output.NewStore(cfg.Output.MaxClients), history, verifier)

	return Dependencies{
		Lookup:   bridge,
		Backend:  api,
		History:  history,
		Verifier: verifier,
	}, nil
}
