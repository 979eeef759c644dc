package pagination

// Phase はページネーションのラウンド内の状態を表します。
type Phase int

const (
	PhaseScanning Phase = iota
	PhaseExpanding
	PhaseScrollingToBottom
	PhaseRoundComplete
	PhaseExhausted
)

func (p Phase) String() string {
	switch p {
	case PhaseScanning:
		return "scanning"
	case PhaseExpanding:
		return "expanding"
	case PhaseScrollingToBottom:
		return "scrolling"
	case PhaseRoundComplete:
		return "round-complete"
	case PhaseExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal はラウンドが終了状態かどうかを返します。
func (p Phase) Terminal() bool {
	return p == PhaseRoundComplete || p == PhaseExhausted
}

// ItemRef はフィード上のアイテムを指すインデックスです。
// フィードを所有せず、スクロール対象の指定にのみ使われ、ラウンド終了後は参照されません。
type ItemRef struct {
	Index int
	valid bool
}

// NewItemRef は index を指す ItemRef を生成します。
func NewItemRef(index int) ItemRef {
	return ItemRef{Index: index, valid: index >= 0}
}

// Valid は ItemRef がアイテムを指しているかを返します。
func (r ItemRef) Valid() bool {
	return r.valid
}

// Limits はページネーションの試行上限です。
type Limits struct {
	MaxRounds         int
	MaxScrollAttempts int
}

// State はページネーションの進行状態です。
// 遷移はすべて値を返すメソッドで表現され、カウンタはスコープ内で単調に増加します。
type State struct {
	Round          int
	ScrollAttempts int
	Phase          Phase
	LastItem       ItemRef
}

// Begin は新しいラウンドを開始した状態を返します。スクロール回数と LastItem はリセットされます。
func (s State) Begin() State {
	return State{
		Round:          s.Round + 1,
		ScrollAttempts: 0,
		Phase:          PhaseExpanding,
	}
}

// Expanded は展開ボタンのクリック結果を反映した状態を返します。
func (s State) Expanded(clicked bool, limits Limits) State {
	switch {
	case clicked:
		s.Phase = PhaseRoundComplete
	case s.ScrollAttempts >= limits.MaxScrollAttempts:
		s.Phase = PhaseExhausted
	default:
		s.Phase = PhaseScrollingToBottom
	}
	return s
}

// Scrolled はスクロール試行後の状態を返します。target が無効な場合も試行回数は増加します。
func (s State) Scrolled(target ItemRef) State {
	s.ScrollAttempts++
	if target.Valid() {
		s.LastItem = target
	}
	s.Phase = PhaseExpanding
	return s
}

// Finish はラウンド終了時に LastItem を取り出し、参照を破棄した状態を返します。
func (s State) Finish() (State, ItemRef) {
	ref := s.LastItem
	s.LastItem = ItemRef{}
	return s, ref
}

// Done はラウンド数が上限に達したかを返します。
func (s State) Done(limits Limits) bool {
	return s.Round >= limits.MaxRounds
}
