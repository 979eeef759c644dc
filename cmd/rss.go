package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/spf13/cobra"

	"github.com/shouni/go-feed-harvest/internal/pipeline"
	"github.com/shouni/go-feed-harvest/internal/progress"
	"github.com/shouni/go-feed-harvest/pkg/feed"
	"github.com/shouni/go-feed-harvest/pkg/store"
)

// 全体処理のタイムアウトは HTTP クライアントのタイムアウトのこの倍数 × セクター数
const overallFeedTimeoutFactor = 2

var (
	rssSectors  []string
	rssDataPath string
)

var rssCmd = &cobra.Command{
	Use:   "rss",
	Short: "セクターの RSS フィードから記事リンクを取得し、年ごとに保存します",
	Long:  `ブラウザを使わずに <base-url>/<sector>/feed/ を取得・解析し、公開日時の年ごとにリンクを <data-path>/<sector>/links/<年>.txt に保存します。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		if rssDataPath == "" {
			return fmt.Errorf("--data-path が空です")
		}

		overallTimeout := settings.HTTPTimeout * overallFeedTimeoutFactor * time.Duration(len(rssSectors))
		ctx, cancel := context.WithTimeout(context.Background(), overallTimeout)
		defer cancel()
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()

		client := httpkit.New(settings.HTTPTimeout, httpkit.WithMaxRetries(settings.HTTPMaxRetries))
		reporter := progress.New(os.Stderr, clibase.Flags.Verbose)
		reporter.Debugf("HTTPクライアントを設定しました (Timeout: %s, MaxRetries: %d, 全体タイムアウト: %s)。",
			settings.HTTPTimeout, settings.HTTPMaxRetries, overallTimeout)

		harvester := pipeline.NewFeedHarvester(feed.NewParser(client), store.New(rssDataPath, nil), settings, reporter)
		report, err := harvester.Run(ctx, rssSectors)
		if err != nil {
			return fmt.Errorf("フィードの収集を中断しました: %w", err)
		}
		if len(report.Elements) > 0 && report.Failed() == len(report.Elements) {
			return fmt.Errorf("すべてのフィードの収集に失敗しました (%d件)", report.Failed())
		}
		return nil
	},
}

func init() {
	rssCmd.Flags().StringSliceVarP(&rssSectors, "sector", "s", nil, "取得するセクター名 (例: politica,economia)")
	rssCmd.Flags().StringVar(&rssDataPath, "data-path", defaultDataPath(), "リンクを保存するディレクトリ")
	rssCmd.MarkFlagRequired("sector")
}
