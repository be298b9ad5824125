package attendance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ErrInvalidClock 时刻字符串格式错误
var ErrInvalidClock = errors.New("时刻格式无效")

// Clock 可注入的时钟
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 返回系统时钟
func SystemClock() Clock { return systemClock{} }

// Normalizer 负责 UTC 时刻与业务时区墙上时间、营业日之间的换算。
// 所有换算走时区数据库，夏令时切换日同样正确。
type Normalizer struct {
	loc   *time.Location
	clock Clock
}

// NewNormalizer 按 IANA 时区名创建 Normalizer，clock 为 nil 时使用系统时钟
func NewNormalizer(tz string, clock Clock) (*Normalizer, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("加载时区 %q 失败: %w", tz, err)
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Normalizer{loc: loc, clock: clock}, nil
}

// Location 业务时区
func (n *Normalizer) Location() *time.Location { return n.loc }

// Now 当前业务时区时间
func (n *Normalizer) Now() time.Time { return n.clock.Now().In(n.loc) }

// Local 转为业务时区时间
func (n *Normalizer) Local(t time.Time) time.Time { return t.In(n.loc) }

// ClockString 业务时区 HH:MM
func (n *Normalizer) ClockString(t time.Time) string { return t.In(n.loc).Format("15:04") }

// CalendarDay 业务时区下的日历日期（以 UTC 零点表示）
func (n *Normalizer) CalendarDay(t time.Time) time.Time {
	l := t.In(n.loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}

// BusinessDay 营业日：本地小时早于 cutoffHour 时归属前一天
func (n *Normalizer) BusinessDay(t time.Time, cutoffHour int) time.Time {
	day := n.CalendarDay(t)
	if t.In(n.loc).Hour() < cutoffHour {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// MinutesFrom 返回 t 相对 day 零点的墙上分钟数，次日 00:30 记为 1470。
// 按墙上时间计，与 "HH:MM" 排班时段在夏令时切换日仍处于同一刻度。
func (n *Normalizer) MinutesFrom(day, t time.Time) int {
	days := int(n.CalendarDay(t).Sub(DateOnly(day)).Hours() / 24)
	l := t.In(n.loc)
	return days*minutesPerDay + l.Hour()*60 + l.Minute()
}

// Instant 把 day 零点起第 minutes 分钟的墙上时间转为时刻。
// 秋季回拨的重复小时取第一次出现；春季跳过的小时落在跳变之后。
func (n *Normalizer) Instant(day time.Time, minutes int) time.Time {
	offset := floorDiv(minutes, minutesPerDay)
	m := minutes - offset*minutesPerDay
	d := DateOnly(day).AddDate(0, 0, offset)
	cand := time.Date(d.Year(), d.Month(), d.Day(), m/60, m%60, 0, 0, n.loc)

	earlier := cand.Add(-time.Hour).In(n.loc)
	if earlier.Day() == cand.Day() && earlier.Hour() == cand.Hour() && earlier.Minute() == cand.Minute() {
		return earlier
	}
	return cand
}

// BusinessDayBounds 营业日的时刻区间 [day cutoff:00, day+1 cutoff:00)
func (n *Normalizer) BusinessDayBounds(day time.Time, cutoffHour int) (time.Time, time.Time) {
	return n.Instant(day, cutoffHour*60), n.Instant(day, minutesPerDay+cutoffHour*60)
}

// DateOnly 截断为 UTC 零点日期
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseClock 解析 "HH:MM" 或 "HH:MM:SS"，允许 24:00
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

// FormatMinutes 分钟数格式化为 HH:MM（超过 24h 的部分回绕）
func FormatMinutes(m int) string {
	m = ((m % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
