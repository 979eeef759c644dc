package cmd

import (
	"log"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-feed-harvest/pkg/config"
)

// --- グローバル定数 ---

const (
	appName = "feed-harvest"
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	ConfigPath string // --config 設定ファイル (YAML)
}

var Flags AppFlags

// settings は initAppPreRunE で読み込まれた設定です。サブコマンドはこれを参照します。
var settings = config.DefaultSettings()

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(
		&Flags.ConfigPath,
		"config",
		"",
		"設定ファイル (YAML) のパス。未指定の場合は既定値を使用します",
	)
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadSettings(Flags.ConfigPath)
	if err != nil {
		return err
	}

	baseURL, err := ensureScheme(loaded.BaseURL)
	if err != nil {
		return &config.ConfigurationError{Field: "base_url", Reason: err.Error()}
	}
	loaded.BaseURL = baseURL
	settings = loaded

	if clibase.Flags.Verbose {
		log.Printf("設定を読み込みました (BaseURL: %s, MaxRounds: %d, MaxScrollAttempts: %d, ScrollDelay: %s)。",
			settings.BaseURL, settings.MaxRounds, settings.MaxScrollAttempts, settings.ScrollDelay)
	}
	return nil
}

// --- エントリポイント ---

// Execute は、clibase を使ってルートコマンドを組み立てて実行します。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		collectCmd,
		rssCmd,
	)
}
