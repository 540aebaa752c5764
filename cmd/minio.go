package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"loraset/storage"
)

var (
	minioDataset string
	minioStats   bool
	minioDelete  bool
)

var minioCmd = &cobra.Command{
	Use:   "storage",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理MinIO存储桶中已上传的预处理结果，支持列出文件、查看统计信息、删除数据集等功能。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
		store, err := storage.NewBundleStore(cfg)
		if err != nil {
			return fmt.Errorf("无法连接到MinIO: %w", err)
		}

		// 删除数据集
		if minioDelete {
			if minioDataset == "" {
				return fmt.Errorf("删除操作需要指定数据集 (--dataset)")
			}
			n, err := store.DeleteDataset(cmd.Context(), minioDataset)
			if err != nil {
				return fmt.Errorf("删除数据集失败: %w", err)
			}
			fmt.Printf("已删除 %d 个对象\n", n)
			return nil
		}

		objects, stats, err := store.List(cmd.Context(), minioDataset)
		if err != nil {
			return fmt.Errorf("列出文件失败: %w", err)
		}
		if !minioStats {
			for _, o := range objects {
				fmt.Printf("%-60s %10s  %s\n", o.Key, storage.FormatSize(o.Size), o.LastModified.Format("2006-01-02 15:04:05"))
			}
		}
		fmt.Printf("\n对象数量: %d\n总大小: %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf("最后修改: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioDataset, "dataset", "d", "", "只显示或操作该数据集")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "只显示统计信息")
	minioCmd.Flags().BoolVar(&minioDelete, "delete", false, "删除指定数据集的所有对象")

	minioCmd.Example = `  # 列出所有已上传的对象
  loraset storage

  # 查看某个数据集的统计信息
  loraset storage -d lofi -s

  # 删除数据集
  loraset storage -d lofi --delete`
}
