package service

import (
	"time"
)

// PlanningHorizon 计划期：起止日期 + 时间桶宽度（天）
// 计算器只关心桶边界，桶粒度由调用方决定
type PlanningHorizon struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	BucketDays int       `json:"bucket_days"`
}

// NewPlanningHorizon 构造计划期，bucketDays<=0时按天分桶
func NewPlanningHorizon(start, end time.Time, bucketDays int) PlanningHorizon {
	if bucketDays <= 0 {
		bucketDays = 1
	}
	return PlanningHorizon{Start: truncateDay(start), End: truncateDay(end), BucketDays: bucketDays}
}

// Bucket 时间桶 [Start, End)
type Bucket struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains 判断日期是否落在桶内
func (b Bucket) Contains(t time.Time) bool {
	return !t.Before(b.Start) && t.Before(b.End)
}

// Buckets 按BucketDays切分计划期，末桶截断到End
// 直接构造的计划期BucketDays可能为0，这里同样按天兜底
func (h PlanningHorizon) Buckets() []Bucket {
	step := h.BucketDays
	if step <= 0 {
		step = 1
	}
	var buckets []Bucket
	for cur := h.Start; cur.Before(h.End); {
		next := cur.AddDate(0, 0, step)
		if next.After(h.End) {
			next = h.End
		}
		buckets = append(buckets, Bucket{Start: cur, End: next})
		cur = next
	}
	return buckets
}

// Contains 判断日期是否落在计划期内 [Start, End)
func (h PlanningHorizon) Contains(t time.Time) bool {
	return !t.Before(h.Start) && t.Before(h.End)
}

// Days 计划期天数
func (h PlanningHorizon) Days() int {
	return int(h.End.Sub(h.Start).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
