package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// リトライ関連の定数
	DefaultMaxRetries = 3 // 最大リトライ回数

	// バックオフのカスタム設定
	InitialBackoffInterval = 500 * time.Millisecond
	MaxBackoffInterval     = 5 * time.Second
)

// Operation はリトライ可能な処理を表す関数です。成功時は nil を返します。
type Operation func() error

// ShouldRetryFunc はエラーを受け取り、そのエラーがリトライ可能かどうかを判定する関数です。
type ShouldRetryFunc func(error) bool

// Always はすべてのエラーをリトライ対象とみなします。
func Always(error) bool { return true }

// Config はリトライ動作を設定するための構造体です。
type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// Constant が true の場合、指数バックオフではなく InitialInterval 間隔の固定ポーリングになります。
	Constant bool
}

// DefaultConfig は推奨されるデフォルト設定を返します。
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: InitialBackoffInterval,
		MaxInterval:     MaxBackoffInterval,
	}
}

// PollingConfig は、固定間隔で最大 attempts 回まで試行するポーリング設定を返します。
func PollingConfig(attempts uint64, interval time.Duration) Config {
	retries := uint64(0)
	if attempts > 0 {
		retries = attempts - 1
	}
	return Config{
		MaxRetries:      retries,
		InitialInterval: interval,
		MaxInterval:     interval,
		Constant:        true,
	}
}

// newBackOffPolicy は Config とコンテキストからバックオフポリシーを組み立てます。
func newBackOffPolicy(ctx context.Context, cfg Config) backoff.BackOff {
	var b backoff.BackOff
	if cfg.Constant {
		b = backoff.NewConstantBackOff(cfg.InitialInterval)
	} else {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = cfg.InitialInterval
		eb.MaxInterval = cfg.MaxInterval
		b = eb
	}

	// 最大リトライ回数とコンテキストを backoff に適用
	return backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)
}

// Do はバックオフポリシーとカスタムエラー判定を使用して操作をリトライします。
func Do(ctx context.Context, cfg Config, operationName string, op Operation, shouldRetryFn ShouldRetryFunc) error {
	permanent := false

	retryableOp := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if shouldRetryFn(err) {
			return err
		}
		permanent = true
		return backoff.Permanent(err) // 永続エラーとしてラップし、即時終了
	}

	err := backoff.Retry(retryableOp, newBackOffPolicy(ctx, cfg))
	if err == nil {
		return nil
	}

	// コンテキストキャンセル/タイムアウトのエラー処理
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%sに失敗しました: コンテキストタイムアウト/キャンセル: %w", operationName, ctxErr)
	}

	if permanent {
		return fmt.Errorf("%sに失敗しました: 致命的なエラーのためリトライを中止: %w", operationName, err)
	}

	return fmt.Errorf("%sに失敗しました: 最大リトライ回数 (%d回) に到達。最終エラー: %w", operationName, cfg.MaxRetries, err)
}
