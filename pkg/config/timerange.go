package config

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// DefaultStartYear と DefaultEndYear は --time-range の既定値です。
	DefaultStartYear = 2008
	DefaultEndYear   = 2023
)

// ConfigurationError は、実行前の設定検証に失敗したことを示します。
// このエラーが返された場合、ブラウザセッションは開かれません。
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("設定エラー (%s): %s", e.Field, e.Reason)
}

// IsConfigurationError は与えられたエラーが ConfigurationError であるかを判断します。
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var cErr *ConfigurationError
	return errors.As(err, &cErr)
}

// TimeRange は、単一の年または両端を含む年の範囲です。
type TimeRange struct {
	Start int
	End   int
}

// DefaultTimeRange は既定の範囲 [2008, 2023] を返します。
func DefaultTimeRange() TimeRange {
	return TimeRange{Start: DefaultStartYear, End: DefaultEndYear}
}

// ParseTimeRange は1つまたは2つの整数から TimeRange を生成します。
// 値が0個または3個以上の場合、開始年が終了年より後の場合は ConfigurationError を返します。
func ParseTimeRange(values []int) (TimeRange, error) {
	switch len(values) {
	case 1:
		if values[0] <= 0 {
			return TimeRange{}, &ConfigurationError{Field: "time-range", Reason: fmt.Sprintf("無効な年です: %d", values[0])}
		}
		return TimeRange{Start: values[0], End: values[0]}, nil
	case 2:
		start, end := values[0], values[1]
		if start <= 0 || end <= 0 {
			return TimeRange{}, &ConfigurationError{Field: "time-range", Reason: fmt.Sprintf("無効な年です: %d, %d", start, end)}
		}
		if start > end {
			return TimeRange{}, &ConfigurationError{Field: "time-range", Reason: fmt.Sprintf("開始年 %d が終了年 %d より後です", start, end)}
		}
		return TimeRange{Start: start, End: end}, nil
	default:
		return TimeRange{}, &ConfigurationError{Field: "time-range", Reason: fmt.Sprintf("1つまたは2つの年を指定してください (指定数: %d)", len(values))}
	}
}

// Single は範囲が1年だけかどうかを返します。
func (r TimeRange) Single() bool {
	return r.Start == r.End
}

// Years は範囲に含まれる年を昇順の文字列で返します。
func (r TimeRange) Years() []string {
	if r.Start > r.End {
		return nil
	}
	years := make([]string, 0, r.End-r.Start+1)
	for y := r.Start; y <= r.End; y++ {
		years = append(years, strconv.Itoa(y))
	}
	return years
}

func (r TimeRange) String() string {
	if r.Single() {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
