package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/spf13/cobra"

	"quick-swgoh/pkg/common/config"
	"quick-swgoh/pkg/web/router"
)

// backendOrigin 命令行覆盖配置中的后端地址
var backendOrigin string

var rootCmd = &cobra.Command{
	Use:   "quick-swgoh",
	Short: "Form bridge for the SWGOH lookup API",
	Long: `quick-swgoh serves a page with a character form and an account form.
Each submission is forwarded to the backend API as JSON and the
pretty-printed answer is shown in the page's output region.`,
	SilenceUsage: true,
}

// serveCmd 启动页面与 JSON 接口
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendOrigin, "backend", "", "backend API origin, overrides BACKEND_ORIGIN")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lookupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	// 初始化配置
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if backendOrigin != "" {
		cfg.Backend.Origin = strings.TrimRight(backendOrigin, "/")
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 组装后端客户端、审计仓储与桥接服务
	deps, err := router.BuildDependencies(cfg)
	if err != nil {
		return err
	}

	// 创建Hertz实例
	h := server.Default(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)

	// 注册路由
	router.RegisterAPIs(h, cfg, deps)

	hlog.Infof("bridging %s on %s (env=%s)", cfg.Backend.Origin, cfg.Server.Address, cfg.Env)
	h.Spin()
	return nil
}
