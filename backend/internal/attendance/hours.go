package attendance

import (
	"time"

	"github.com/shopspring/decimal"
)

var sixty = decimal.NewFromInt(60)

// Hours 分钟数换算为小时，保留两位小数
func Hours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(sixty).Round(2)
}

// HoursBetween 两个时刻之间的小时数，结束早于开始时为 0
func HoursBetween(from, to time.Time) decimal.Decimal {
	if !to.After(from) {
		return decimal.Zero
	}
	return Hours(int(to.Sub(from) / time.Minute))
}

// WorkedMinutes 完整会话的总时长（分钟）
func WorkedMinutes(sessions []Session) int {
	total := 0
	for _, s := range sessions {
		if s.Complete() && s.Departure.After(*s.Arrival) {
			total += int(s.Departure.Sub(*s.Arrival) / time.Minute)
		}
	}
	return total
}
