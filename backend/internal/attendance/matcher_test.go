package attendance

import (
	"errors"
	"testing"
)

func TestPrepareSegments(t *testing.T) {
	segs := []Segment{
		{Kind: SegmentWork, Start: "09:00", End: "13:00"},
		{Kind: SegmentBreak, Start: "13:00", End: "14:00"},
		{Kind: SegmentWork, Start: "22:00", End: "02:00"},
		{Kind: SegmentWork, Start: "", End: "18:00"},
		{Kind: "inconnu", Start: "10:00", End: "11:00"},
		{Kind: SegmentExtra, Start: "18:00", End: "19:30:00"},
	}

	planned, issues := PrepareSegments(segs)
	if len(planned) != 3 {
		t.Fatalf("期望 3 个有效时段，实际 %d", len(planned))
	}
	if planned[1].End != 26*60 {
		t.Errorf("跨午夜时段结束应为 1560，实际 %d", planned[1].End)
	}
	if len(issues) != 2 {
		t.Fatalf("期望 2 个无效时段，实际 %d", len(issues))
	}
	for _, is := range issues {
		if !errors.Is(is.Err, ErrInvalidSegment) {
			t.Errorf("错误应包装 ErrInvalidSegment: %v", is.Err)
		}
	}
}

func TestOverlapRatio(t *testing.T) {
	a := PlannedSegment{Start: 540, End: 600}
	b := PlannedSegment{Start: 570, End: 660}
	if got := OverlapRatio(a, b); got != 0.5 {
		t.Errorf("期望 0.5，实际 %v", got)
	}
	c := PlannedSegment{Start: 700, End: 800}
	if got := OverlapRatio(a, c); got != 0 {
		t.Errorf("不重叠应为 0，实际 %v", got)
	}
}

func TestFilterRedundant(t *testing.T) {
	th := DefaultConfig().Redundancy

	t.Run("完全重复保留一条", func(t *testing.T) {
		kept, dropped := FilterRedundant([]PlannedSegment{
			{Kind: SegmentWork, Start: 540, End: 780},
			{Kind: SegmentWork, Start: 540, End: 780},
		}, th)
		if len(kept) != 1 || len(dropped) != 1 {
			t.Fatalf("期望保留 1 条、丢弃 1 条，实际 %d/%d", len(kept), len(dropped))
		}
		if kept[0].Index != 1 {
			t.Errorf("保留时段应重新编号为 1，实际 %d", kept[0].Index)
		}
	})

	t.Run("被包含的短时段被丢弃", func(t *testing.T) {
		kept, _ := FilterRedundant([]PlannedSegment{
			{Kind: SegmentWork, Start: 540, End: 1020},
			{Kind: SegmentWork, Start: 720, End: 780},
		}, th)
		if len(kept) != 1 || kept[0].Start != 540 {
			t.Errorf("应只保留 09:00-17:00，实际 %+v", kept)
		}
	})

	t.Run("中度重叠且非整刻钟被丢弃", func(t *testing.T) {
		// 09:27-10:27 与 09:00-10:00 重叠 33/60
		kept, _ := FilterRedundant([]PlannedSegment{
			{Kind: SegmentWork, Start: 540, End: 600},
			{Kind: SegmentWork, Start: 567, End: 627},
		}, th)
		if len(kept) != 1 || kept[0].Start != 540 {
			t.Errorf("应只保留 09:00 时段，实际 %+v", kept)
		}
	})

	t.Run("中度重叠但整刻钟保留", func(t *testing.T) {
		// 09:30-10:30 与 09:00-10:00 重叠 30/60 = 0.5，不超过低阈值
		kept, _ := FilterRedundant([]PlannedSegment{
			{Kind: SegmentWork, Start: 540, End: 600},
			{Kind: SegmentWork, Start: 570, End: 630},
		}, th)
		if len(kept) != 2 {
			t.Errorf("应保留 2 条，实际 %d", len(kept))
		}
	})

	t.Run("互不重叠按开始排序编号", func(t *testing.T) {
		kept, _ := FilterRedundant([]PlannedSegment{
			{Kind: SegmentWork, Start: 960, End: 1200},
			{Kind: SegmentWork, Start: 540, End: 780},
		}, th)
		if len(kept) != 2 || kept[0].Start != 540 || kept[0].Index != 1 || kept[1].Index != 2 {
			t.Errorf("排序或编号错误: %+v", kept)
		}
	})
}

func TestMatch_GreedyBestFit(t *testing.T) {
	segs := []PlannedSegment{
		{Index: 1, Kind: SegmentWork, Start: 540, End: 780},
		{Index: 2, Kind: SegmentWork, Start: 960, End: 1200},
	}
	spans := []Span{
		{Index: 0, Arrival: 965, Departure: 1210, HasArrival: true, HasDeparture: true},
		{Index: 1, Arrival: 545, Departure: 775, HasArrival: true, HasDeparture: true},
		{Index: 2, Arrival: 1300, HasArrival: true},
	}

	res := Match(segs, spans)
	if len(res.Pairs) != 2 {
		t.Fatalf("期望 2 组匹配，实际 %d", len(res.Pairs))
	}
	if res.Pairs[0].Span.Index != 1 || res.Pairs[1].Span.Index != 0 {
		t.Errorf("匹配结果错误: %+v", res.Pairs)
	}
	if len(res.UnmatchedSegments) != 0 || len(res.UnmatchedSpans) != 0 {
		t.Errorf("不应有未匹配项: %+v", res)
	}
}

func TestMatch_Leftovers(t *testing.T) {
	segs := []PlannedSegment{{Index: 1, Kind: SegmentWork, Start: 540, End: 780}}
	spans := []Span{
		{Index: 0, Arrival: 545, Departure: 780, HasArrival: true, HasDeparture: true},
		{Index: 1, Arrival: 1200, Departure: 1260, HasArrival: true, HasDeparture: true},
	}
	res := Match(segs, spans)
	if len(res.UnmatchedSpans) != 1 || res.UnmatchedSpans[0].Index != 1 {
		t.Errorf("晚间会话应未被匹配: %+v", res.UnmatchedSpans)
	}

	res = Match(append(segs, PlannedSegment{Index: 2, Kind: SegmentWork, Start: 900, End: 960}), spans[:1])
	if len(res.UnmatchedSegments) != 1 || res.UnmatchedSegments[0].Index != 2 {
		t.Errorf("第二个时段应未匹配: %+v", res.UnmatchedSegments)
	}
}
