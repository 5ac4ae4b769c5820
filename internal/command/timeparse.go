package command

import (
	"errors"
	"strings"
	"time"
)

var errTimeLiteral = errors.New("invalid time literal")

type timeLayout struct {
	layout     string
	yearDigits int // 0 表示未给出年份
}

// 按字面量长度选择格式：MMDDhhmm[[CC]YY][.ss]
var timeLayouts = map[int]timeLayout{
	8:  {"01021504", 0},
	10: {"0102150406", 2},
	11: {"01021504.05", 0},
	12: {"010215042006", 4},
	13: {"0102150406.05", 2},
	15: {"010215042006.05", 4},
}

// IsAutoKeyword AUTO 或 AUTOCORRECTION
func IsAutoKeyword(s string) bool {
	return strings.EqualFold(s, "AUTO") || strings.EqualFold(s, "AUTOCORRECTION")
}

// ParseTimeLiteral 解析时间字面量。未给出的年份取 now 所在年，两位年份 YY 为 20YY，
// 秒默认为 0。年份须在 2000-2099 之间。
func ParseTimeLiteral(s string, now time.Time, loc *time.Location) (time.Time, error) {
	tl, ok := timeLayouts[len(s)]
	if !ok {
		return time.Time{}, errTimeLiteral
	}
	p, err := time.ParseInLocation(tl.layout, s, loc)
	if err != nil {
		return time.Time{}, errTimeLiteral
	}
	year := p.Year()
	switch tl.yearDigits {
	case 0:
		year = now.In(loc).Year()
	case 2:
		// time 包把 69-99 解析为 19YY
		year = 2000 + year%100
	}
	if year < 2000 || year > 2099 {
		return time.Time{}, errTimeLiteral
	}
	t := time.Date(year, p.Month(), p.Day(), p.Hour(), p.Minute(), p.Second(), 0, loc)
	if t.Day() != p.Day() {
		// 02-29 落在非闰年
		return time.Time{}, errTimeLiteral
	}
	return t, nil
}
