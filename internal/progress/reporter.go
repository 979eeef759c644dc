package progress

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/shouni/go-feed-harvest/pkg/pagination"
)

var (
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Reporter は、収集の進捗をログに出力します。
// 警告と失敗は色付きで表示され、詳細な情報は verbose の場合のみ出力されます。
type Reporter struct {
	logger  *log.Logger
	verbose bool
}

// New は w に出力する Reporter を生成します。w が nil の場合は標準エラー出力を使います。
func New(w io.Writer, verbose bool) *Reporter {
	if w == nil {
		w = os.Stderr
	}
	return &Reporter{
		logger:  log.New(w, "", log.LstdFlags),
		verbose: verbose,
	}
}

// Infof は通常の進捗を出力します。
func (r *Reporter) Infof(format string, args ...any) {
	r.logger.Printf(format, args...)
}

// Debugf は verbose の場合のみ出力します。
func (r *Reporter) Debugf(format string, args ...any) {
	if r.verbose {
		r.logger.Printf(format, args...)
	}
}

// Warnf は処理を継続できる問題を出力します。
func (r *Reporter) Warnf(format string, args ...any) {
	r.logger.Print(warnStyle.Render("WARN " + fmt.Sprintf(format, args...)))
}

// Failf は要素単位で処理を中断した失敗を出力します。
func (r *Reporter) Failf(format string, args ...any) {
	r.logger.Print(failStyle.Render("FAIL " + fmt.Sprintf(format, args...)))
}

// Saved は書き込んだファイルを出力します。
func (r *Reporter) Saved(path string, links int) {
	r.logger.Print(okStyle.Render(fmt.Sprintf("保存しました: %s (%d件)", path, links)))
}

// Round は pagination.ObserverFunc として使えるラウンド進捗の出力です。
func (r *Reporter) Round(element string) pagination.ObserverFunc {
	return func(rep pagination.RoundReport) {
		year := rep.Year
		if year == "" {
			year = "?"
		}
		r.logger.Printf("[%s] ラウンド %d: %s 経過 / 最後の記事の年: %s (%s)",
			element, rep.Round, FormatElapsed(rep.Elapsed), year, rep.Phase)
		if rep.Err != nil {
			r.Debugf("[%s] ラウンド %d: 最後の記事の読み取りに失敗しました: %v", element, rep.Round, rep.Err)
		} else if rep.DateText != "" {
			r.Debugf("[%s] ラウンド %d: 日付テキスト %q, スクロール %d 回", element, rep.Round, rep.DateText, rep.ScrollAttempts)
		}
	}
}

// FormatElapsed は経過時間を HH:MM:SS 形式にします。
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
