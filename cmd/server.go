package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"loraset/core/audio"
	"loraset/core/auth"
	"loraset/core/labeling"
	"loraset/core/preprocess"
	"loraset/logger"
	"loraset/repository"
	"loraset/server"
)

var (
	servePort    int
	serveCatalog bool
)

var serverCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动审阅服务器",
	Long: `启动审阅 HTTP 服务，通过 API 浏览和编辑工作会话，后台运行标注与预处理任务，
并通过 /ws/progress 推送进度。退出时保存工作会话。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return err
		}
		if cfg.ReviewPasswordHash == "" {
			return fmt.Errorf("REVIEW_PASSWORD_HASH is not set, create one with `loraset passwd`")
		}
		b, err := openSession()
		if err != nil {
			return err
		}

		dit := newDiTClient()
		pre := preprocess.NewPreprocessor(audio.NewFFmpegProcessor(), dit)
		pre.SetTokenLengths(cfg.TextMaxLength, cfg.LyricMaxLength)

		labelOpts := labeling.DefaultOptions()
		labelOpts.Temperature = cfg.LabelTemperature
		labelOpts.Constrained = cfg.LabelConstrained

		deps := server.Dependencies{
			Builder:           b,
			Labeler:           labeling.NewOrchestrator(dit, newLLMClient()),
			Preprocessor:      pre,
			Tokens:            tokens,
			PasswordHash:      cfg.ReviewPasswordHash,
			LabelOptions:      labelOpts,
			PreprocessOptions: preprocess.Options{OutputDir: cfg.PreprocessOutputDir, MaxDuration: cfg.MaxDuration},
		}
		if serveCatalog {
			var catalog repository.CatalogRepository
			if catalog, err = openCatalog(); err != nil {
				return err
			}
			deps.Catalog = catalog
		}

		port := cfg.ServerPort
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		srv := server.New(deps)
		runErr := srv.Start(cmd.Context(), fmt.Sprintf(":%d", port))

		// 服务已停止，任务均已结束
		if err := saveSession(b); err != nil {
			logger.Error("failed to save session", logger.ErrorField(err))
			if runErr == nil {
				runErr = err
			}
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "监听端口 (默认 SERVER_PORT)")
	serverCmd.Flags().BoolVar(&serveCatalog, "catalog", false, "保存与预处理时同步样本目录数据库")
}
