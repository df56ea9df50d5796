package schooldate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

// 2025-12-24 is a Wednesday.
var wednesday = time.Date(2025, 12, 24, 10, 30, 0, 0, SeoulLocation())

func TestToday(t *testing.T) {
	t.Parallel()

	// 20:00 UTC is already the next morning in Seoul.
	late := time.Date(2025, 12, 24, 20, 0, 0, 0, time.UTC)
	got := Today(late)

	assert.Equal(t, "20251225", Compact(got))
	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, "목요일", WeekdayName(got))
}

func TestWeekStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		anchor time.Time
		want   string
	}{
		{"wednesday", wednesday, "20251221"},
		{"sunday is its own start", time.Date(2025, 12, 28, 8, 0, 0, 0, SeoulLocation()), "20251228"},
		{"saturday", time.Date(2025, 12, 27, 23, 0, 0, 0, SeoulLocation()), "20251221"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Compact(WeekStart(tt.anchor)))
		})
	}
}

func TestRewriteRelative(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tomorrow", "내일 급식 메뉴가 뭐야?", "2025년 12월 25일 급식 메뉴가 뭐야?"},
		{"day after tomorrow", "모레 일정 알려줘", "2025년 12월 26일 일정 알려줘"},
		{"yesterday", "어제 시간표", "2025년 12월 23일 시간표"},
		{"compound day after tomorrow", "내일모레 급식", "2025년 12월 26일 급식"},
		{"next monday", "다음주 월요일 급식", "2025년 12월 29일 급식"},
		{"next monday with spaces", "다음 주 월요일 급식", "2025년 12월 29일 급식"},
		{"this friday", "이번주 금요일 행사", "2025년 12월 26일 행사"},
		{"this sunday", "이번 주 일요일", "2025년 12월 21일"},
		{"next saturday", "다음주 토요일", "2026년 01월 03일"},
		{"two expressions", "내일이랑 다음주 화요일 급식", "2025년 12월 25일이랑 2025년 12월 30일 급식"},
		{"no relative words", "12월 26일에 무슨 행사가 있어?", "12월 26일에 무슨 행사가 있어?"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RewriteRelative(tt.in, wednesday))
		})
	}
}

func TestRewriteRelative_DecomposedHangul(t *testing.T) {
	t.Parallel()

	decomposed := norm.NFD.String("내일 급식")
	assert.Equal(t, "2025년 12월 25일 급식", RewriteRelative(decomposed, wednesday))
}

func TestRewriteRelative_SundayAnchor(t *testing.T) {
	t.Parallel()

	sunday := time.Date(2025, 12, 28, 9, 0, 0, 0, SeoulLocation())
	assert.Equal(t, "2025년 12월 29일", RewriteRelative("이번주 월요일", sunday))
	assert.Equal(t, "2026년 01월 05일", RewriteRelative("다음주 월요일", sunday))
}

func TestNormalizeToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tok    string
		want   string
		wantOK bool
	}{
		{"compact", "20251225", "20251225", true},
		{"iso", "2025-12-25", "20251225", true},
		{"short", "12-26", "20251226", true},
		{"short single digits", "3-2", "20250302", true},
		{"long korean", "2025년 12월 29일", "20251229", true},
		{"long korean unpadded", "2026년 1월 5일", "20260105", true},
		{"relative", "내일", "20251225", true},
		{"relative week", "다음주 월요일", "20251229", true},
		{"surrounding spaces", "  20251225 ", "20251225", true},
		{"leap day", "20240229", "20240229", true},
		{"month 13", "20251332", "", false},
		{"day 32", "20251232", "", false},
		{"february 30", "2025-02-30", "", false},
		{"not a leap year", "20250229", "", false},
		{"month zero", "0-10", "", false},
		{"iso without padding", "2025-1-5", "", false},
		{"garbage", "급식", "", false},
		{"empty", "", "", false},
		{"seven digits", "2025122", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeToken(tt.tok, wednesday)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeToken_Idempotent(t *testing.T) {
	t.Parallel()

	for _, tok := range []string{"20251225", "2025-03-01", "12-26", "내일", "다음주 금요일"} {
		first, ok := NormalizeToken(tok, wednesday)
		assert.True(t, ok, tok)

		second, ok := NormalizeToken(first, wednesday)
		assert.True(t, ok, tok)
		assert.Equal(t, first, second, tok)
	}
}
