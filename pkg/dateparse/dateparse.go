package dateparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shouni/go-feed-harvest/pkg/types"
)

// yearPattern は年として受け付けるトークン (4桁の数字) です。
var yearPattern = regexp.MustCompile(`^[0-9]{4}$`)

// MalformedDateTextError は、日付テキストが想定した構造になっていない場合のエラーです。
// 呼び出し元は該当アイテムをスキップし、処理を継続できます。
type MalformedDateTextError struct {
	Text    string
	Variant types.Variant
	Reason  string
}

func (e *MalformedDateTextError) Error() string {
	return fmt.Sprintf("日付テキストの形式が不正です (%s): %q: %s", e.Variant, e.Text, e.Reason)
}

// IsMalformed は与えられたエラーが MalformedDateTextError であるかを判断します。
func IsMalformed(err error) bool {
	if err == nil {
		return false
	}
	var malformed *MalformedDateTextError
	return errors.As(err, &malformed)
}

// ExtractYear は FeedItem の日付テキストから4桁の年を取り出します。
func ExtractYear(item types.FeedItem) (string, error) {
	return ExtractYearFromText(item.RawDateText, item.Variant)
}

// ExtractYearFromText は、バリアントごとの規則に従って日付テキストから年を取り出します。
//
//   - バリアントA: "31 dez 2022, 18h04" のような単一の日付。最初のカンマ区切りの末尾トークン。
//   - バリアントB: "31 dez 2022, 16h52" (2区切り) は最初の区切り、
//     "Atualizado em ..., 18h04 - Publicado em 31 dez 2022, 18h00" (3区切り以上) は2番目の区切り。
func ExtractYearFromText(text string, variant types.Variant) (string, error) {
	segments := strings.Split(text, ",")

	var segment string
	switch variant {
	case types.VariantCompact:
		segment = segments[0]
	case types.VariantExpanded:
		switch {
		case len(segments) == 2:
			segment = segments[0]
		case len(segments) >= 3:
			// 先頭は「更新日時」なので捨て、公開日を含む2番目の区切りを使う
			segment = segments[1]
		default:
			return "", &MalformedDateTextError{
				Text:    text,
				Variant: variant,
				Reason:  fmt.Sprintf("カンマ区切りの数が想定外です (%d)", len(segments)),
			}
		}
	default:
		return "", &MalformedDateTextError{Text: text, Variant: variant, Reason: "未知のバリアントです"}
	}

	tokens := strings.Fields(segment)
	if len(tokens) == 0 {
		return "", &MalformedDateTextError{Text: text, Variant: variant, Reason: "年のトークンが見つかりません"}
	}

	year := tokens[len(tokens)-1]
	if !yearPattern.MatchString(year) {
		return "", &MalformedDateTextError{
			Text:    text,
			Variant: variant,
			Reason:  fmt.Sprintf("末尾のトークンが4桁の年ではありません (%q)", year),
		}
	}
	return year, nil
}
