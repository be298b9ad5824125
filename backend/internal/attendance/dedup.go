package attendance

import (
	"sort"
	"time"
)

// SortPunches 返回按时刻升序排列的副本
func SortPunches(punches []Punch) []Punch {
	out := make([]Punch, len(punches))
	copy(out, punches)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Dedup 去除重复刷卡：与上一条保留记录方向相同且间隔不超过 window 的打卡被丢弃
func Dedup(punches []Punch, window time.Duration) []Punch {
	sorted := SortPunches(punches)
	out := make([]Punch, 0, len(sorted))
	for _, p := range sorted {
		if n := len(out); n > 0 {
			last := out[n-1]
			if last.Direction == p.Direction && p.At.Sub(last.At) <= window {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// CountDirections 统计到达/离开次数
func CountDirections(punches []Punch) (arrivals, departures int) {
	for _, p := range punches {
		switch p.Direction {
		case Arrival:
			arrivals++
		case Departure:
			departures++
		}
	}
	return arrivals, departures
}
