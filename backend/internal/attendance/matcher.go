package attendance

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidSegment 计划时段缺少起止时间或格式错误
var ErrInvalidSegment = errors.New("计划时段无效")

// SegmentIssue 被丢弃的时段及原因
type SegmentIssue struct {
	Position int // 在原始时段列表中的下标，从 0 开始
	Segment  Segment
	Err      error
}

// PrepareSegments 校验并换算计划时段：缺少起止、格式错误或类型未知的时段被丢弃，
// 结束早于开始视为跨午夜。休息时段不参与匹配，直接略过。
func PrepareSegments(segments []Segment) ([]PlannedSegment, []SegmentIssue) {
	planned := make([]PlannedSegment, 0, len(segments))
	var issues []SegmentIssue
	for i, seg := range segments {
		if !seg.Kind.Valid() {
			issues = append(issues, SegmentIssue{i, seg, fmt.Errorf("%w: 未知类型 %q", ErrInvalidSegment, seg.Kind)})
			continue
		}
		if seg.Kind == SegmentBreak {
			continue
		}
		if seg.Start == "" || seg.End == "" {
			issues = append(issues, SegmentIssue{i, seg, fmt.Errorf("%w: 缺少起止时间", ErrInvalidSegment)})
			continue
		}
		start, err := ParseClock(seg.Start)
		if err != nil {
			issues = append(issues, SegmentIssue{i, seg, fmt.Errorf("%w: %v", ErrInvalidSegment, err)})
			continue
		}
		end, err := ParseClock(seg.End)
		if err != nil {
			issues = append(issues, SegmentIssue{i, seg, fmt.Errorf("%w: %v", ErrInvalidSegment, err)})
			continue
		}
		if end < start {
			end += minutesPerDay
		}
		if end == start {
			issues = append(issues, SegmentIssue{i, seg, fmt.Errorf("%w: 时长为 0", ErrInvalidSegment)})
			continue
		}
		planned = append(planned, PlannedSegment{Kind: seg.Kind, Start: start, End: end})
	}
	return planned, issues
}

// RedundancyThresholds 冗余过滤阈值
type RedundancyThresholds struct {
	HighOverlapRatio   float64
	LowOverlapRatio    float64
	QuarterStepMinutes int
}

// OverlapRatio a 与 b 的重叠分钟数占 a 自身时长的比例
func OverlapRatio(a, b PlannedSegment) float64 {
	if a.Duration() <= 0 {
		return 0
	}
	lo := max(a.Start, b.Start)
	hi := min(a.End, b.End)
	if hi <= lo {
		return 0
	}
	return float64(hi-lo) / float64(a.Duration())
}

// Redundant 判断 seg 相对 other 是否冗余：重叠比例超过高阈值，
// 或超过低阈值且开始时间不在整刻钟上（上游聚合产生的重复条目）
func Redundant(seg, other PlannedSegment, th RedundancyThresholds) bool {
	r := OverlapRatio(seg, other)
	if r > th.HighOverlapRatio {
		return true
	}
	return r > th.LowOverlapRatio && th.QuarterStepMinutes > 0 && seg.Start%th.QuarterStepMinutes != 0
}

// FilterRedundant 按开始时间排序后去除冗余时段，并重新编号（从 1 开始）。
// 倒序扫描，完全重复的两条保留靠前的一条。
func FilterRedundant(segments []PlannedSegment, th RedundancyThresholds) (kept, dropped []PlannedSegment) {
	sorted := make([]PlannedSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	removed := make([]bool, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		for j := range sorted {
			if j == i || removed[j] {
				continue
			}
			if Redundant(sorted[i], sorted[j], th) {
				removed[i] = true
				break
			}
		}
	}

	for i, seg := range sorted {
		if removed[i] {
			dropped = append(dropped, seg)
			continue
		}
		seg.Index = len(kept) + 1
		kept = append(kept, seg)
	}
	return kept, dropped
}

// Span 会话在营业日分钟刻度上的投影
type Span struct {
	Index        int // 在会话列表中的下标
	Arrival      int
	Departure    int
	HasArrival   bool
	HasDeparture bool
}

// Complete 到达与离开均存在
func (s Span) Complete() bool { return s.HasArrival && s.HasDeparture }

// MatchedPair 一组匹配上的计划时段与会话
type MatchedPair struct {
	Segment PlannedSegment
	Span    Span
}

// MatchResult 匹配结果
type MatchResult struct {
	Pairs             []MatchedPair
	UnmatchedSegments []PlannedSegment
	UnmatchedSpans    []Span // 未被占用的完整会话
}

// Match 贪心最佳匹配：按开始时间依次为每个时段挑选得分最低的未占用完整会话，
// 得分 = |计划开始 - 到达| + |计划结束 - 离开|
func Match(segments []PlannedSegment, spans []Span) MatchResult {
	ordered := make([]PlannedSegment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	used := make([]bool, len(spans))
	var res MatchResult
	for _, seg := range ordered {
		best, bestScore := -1, 0
		for k, sp := range spans {
			if used[k] || !sp.Complete() {
				continue
			}
			score := abs(seg.Start-sp.Arrival) + abs(seg.End-sp.Departure)
			if best < 0 || score < bestScore {
				best, bestScore = k, score
			}
		}
		if best < 0 {
			res.UnmatchedSegments = append(res.UnmatchedSegments, seg)
			continue
		}
		used[best] = true
		res.Pairs = append(res.Pairs, MatchedPair{Segment: seg, Span: spans[best]})
	}

	for k, sp := range spans {
		if !used[k] && sp.Complete() {
			res.UnmatchedSpans = append(res.UnmatchedSpans, sp)
		}
	}
	return res
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
