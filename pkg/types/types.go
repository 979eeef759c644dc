package types

// Variant は、記事の日付テキストがどの DOM 構造から読み取られたかを表します。
type Variant int

const (
	// VariantCompact は "author blog-image" クラスを持つ要素 (バリアントA) です。
	// 要素全体のテキストがカンマ区切りの日付文字列になります。
	VariantCompact Variant = iota
	// VariantExpanded は通常の author 要素 (バリアントB) です。
	// 日付は最後の span 要素のテキストに含まれます。
	VariantExpanded
)

// String は、ログ出力用のバリアント名を返します。
func (v Variant) String() string {
	switch v {
	case VariantCompact:
		return "compact"
	case VariantExpanded:
		return "expanded"
	default:
		return "unknown"
	}
}

// FeedItem は、フィード上で発見された1件の記事を保持します。
// フィードの DOM から読み取られた後は変更されません。
type FeedItem struct {
	Link        string  // 記事アンカーの href
	RawDateText string  // 日付・著者テキスト (構造はバリアントに依存)
	Variant     Variant // 日付テキストの構造
}
