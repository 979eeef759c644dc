package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL はフィードを提供するサイトのルートです。
	DefaultBaseURL = "https://veja.abril.com.br"
	// DefaultSector はすべての年のアーカイブを対象にするセクター名です。
	DefaultSector = "all"
)

// Settings は、設定ファイル (YAML) から読み込まれる実行時の設定です。
// 未指定の項目は既定値のままになります。
type Settings struct {
	BaseURL           string        `yaml:"base_url"`
	MaxRounds         int           `yaml:"max_rounds"`
	MaxScrollAttempts int           `yaml:"max_scroll_attempts"`
	ScrollDelay       time.Duration `yaml:"scroll_delay"`
	StopOnExhausted   bool          `yaml:"stop_on_exhausted"`
	WaitAttempts      uint64        `yaml:"wait_attempts"`
	WaitInterval      time.Duration `yaml:"wait_interval"`
	LookupTimeout     time.Duration `yaml:"lookup_timeout"`
	NavigateTimeout   time.Duration `yaml:"navigate_timeout"`
	Zoom              float64       `yaml:"zoom"`
	UserAgent         string        `yaml:"user_agent"`

	// RSS モード用
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	HTTPMaxRetries uint64        `yaml:"http_max_retries"`
}

// DefaultSettings は既定の設定を返します。
func DefaultSettings() Settings {
	return Settings{
		BaseURL:           DefaultBaseURL,
		MaxRounds:         100,
		MaxScrollAttempts: 100,
		ScrollDelay:       1 * time.Second,
		StopOnExhausted:   true,
		WaitAttempts:      30,
		WaitInterval:      1 * time.Second,
		LookupTimeout:     10 * time.Second,
		NavigateTimeout:   60 * time.Second,
		Zoom:              0.3,
		HTTPTimeout:       10 * time.Second,
		HTTPMaxRetries:    3,
	}
}

// LoadSettings は path の YAML を既定値の上に読み込みます。
// path が空の場合、またはファイルが存在しない場合は既定値を返します。
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, &ConfigurationError{Field: path, Reason: fmt.Sprintf("YAMLの解析に失敗しました: %v", err)}
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate は設定値の整合性を検証します。
func (s Settings) Validate() error {
	if s.BaseURL == "" {
		return &ConfigurationError{Field: "base_url", Reason: "空です"}
	}
	if s.MaxRounds <= 0 {
		return &ConfigurationError{Field: "max_rounds", Reason: "1以上を指定してください"}
	}
	if s.MaxScrollAttempts <= 0 {
		return &ConfigurationError{Field: "max_scroll_attempts", Reason: "1以上を指定してください"}
	}
	if s.ScrollDelay < 0 || s.WaitInterval < 0 {
		return &ConfigurationError{Field: "delay", Reason: "負の待機時間は指定できません"}
	}
	if s.WaitAttempts == 0 {
		return &ConfigurationError{Field: "wait_attempts", Reason: "1以上を指定してください"}
	}
	if s.Zoom < 0 {
		return &ConfigurationError{Field: "zoom", Reason: "負の値は指定できません"}
	}
	return nil
}

// ElementURL は base URL とスコープ要素 (セクター名または年) からページの URL を作ります。
func (s Settings) ElementURL(element string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.Trim(element, "/") + "/"
}

// FeedURL は RSS モードで取得するセクターのフィード URL を返します。
func (s Settings) FeedURL(sector string) string {
	return s.ElementURL(sector) + "feed/"
}
