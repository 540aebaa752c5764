package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"loraset/cache"
)

var (
	cacheCount bool
	cachePurge bool
)

var redisCmd = &cobra.Command{
	Use:   "cache",
	Short: "音频编码缓存管理",
	Long:  `测试Redis连接，统计或清空标注时缓存的音频编码。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)
		if err := cache.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer cache.CloseRedis()

		codes := cache.NewCodesCache(cache.RedisClient, cfg.CodesCacheTTL)
		switch {
		case cachePurge:
			n, err := codes.Purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("清空缓存失败: %w", err)
			}
			fmt.Printf("已清除 %d 条音频编码缓存\n", n)
		case cacheCount:
			n, err := codes.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("统计缓存失败: %w", err)
			}
			fmt.Printf("缓存中有 %d 条音频编码\n", n)
		default:
			if err := cache.CheckRedis(cmd.Context()); err != nil {
				return fmt.Errorf("Redis操作测试失败: %w", err)
			}
			fmt.Println("Redis连接与读写测试成功！")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
	redisCmd.Flags().BoolVar(&cacheCount, "count", false, "统计缓存条目")
	redisCmd.Flags().BoolVar(&cachePurge, "purge", false, "清空音频编码缓存")
}
