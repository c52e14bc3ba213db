package dateparse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var durationPattern = regexp.MustCompile(`^(\d+)\s*([a-zéû]+)$`)

// 数量上限，避免 AddDate 的年份溢出
const maxAmount = 1_000_000_000

// 支持的绝对日期格式（UTC）
var layouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"02/01/2006",
	"02/01/2006 15:04",
	time.RFC3339,
}

type unit int

const (
	unitMinute unit = iota
	unitHour
	unitDay
	unitWeek
	unitMonth
	unitYear
)

// 英文和法文单位
var units = map[string]unit{
	"min": unitMinute, "mins": unitMinute, "minute": unitMinute, "minutes": unitMinute,
	"h": unitHour, "hour": unitHour, "hours": unitHour, "heure": unitHour, "heures": unitHour,
	"d": unitDay, "day": unitDay, "days": unitDay, "j": unitDay, "jour": unitDay, "jours": unitDay,
	"w": unitWeek, "week": unitWeek, "weeks": unitWeek, "sem": unitWeek, "semaine": unitWeek, "semaines": unitWeek,
	"mo": unitMonth, "month": unitMonth, "months": unitMonth, "mois": unitMonth,
	"y": unitYear, "year": unitYear, "years": unitYear, "an": unitYear, "ans": unitYear, "année": unitYear, "années": unitYear,
}

// Parser 把 "30d"、"1 mois"、"2026-12-31"、"next friday" 之类的输入解析为绝对时间
type Parser struct {
	w *when.Parser
}

func New() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// Parse 相对 now 解析；无法识别时返回 false
func (p *Parser) Parse(text string, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	now = now.UTC()

	// RFC3339 区分大小写，绝对日期先于小写化
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	text = strings.ToLower(text)
	// 单位可识别时结果即为最终结果，不再交给 when
	if t, known, ok := parseDuration(text, now); known {
		return t, ok
	}

	r, err := p.w.Parse(text, now)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time.UTC(), true
}

// parseDuration known 表示输入是“数字+已知单位”的形式
func parseDuration(text string, now time.Time) (t time.Time, known, ok bool) {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false, false
	}
	u, found := units[m[2]]
	if !found {
		return time.Time{}, false, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 || n > maxAmount {
		return time.Time{}, true, false
	}

	switch u {
	case unitMinute:
		t, ok = addDuration(now, n, time.Minute)
	case unitHour:
		t, ok = addDuration(now, n, time.Hour)
	case unitDay:
		t, ok = now.AddDate(0, 0, n), true
	case unitWeek:
		t, ok = now.AddDate(0, 0, 7*n), true
	case unitMonth:
		t, ok = now.AddDate(0, n, 0), true
	default:
		t, ok = now.AddDate(n, 0, 0), true
	}
	return t, true, ok
}

// addDuration n*step 溢出 int64 时视为无法解析
func addDuration(now time.Time, n int, step time.Duration) (time.Time, bool) {
	if int64(n) > math.MaxInt64/int64(step) {
		return time.Time{}, false
	}
	return now.Add(time.Duration(n) * step), true
}
