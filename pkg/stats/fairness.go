// Package stats 提供排班公平性统计分析
package stats

import (
	"math"
	"sort"

	"github.com/zhiban/zhiban/pkg/model"
)

// UserStat 单用户统计
type UserStat struct {
	UserID        string         `json:"userId"`
	UserName      string         `json:"userName"`
	ShiftCount    int            `json:"shiftCount"`
	NightShifts   int            `json:"nightShifts"`
	WeekendShifts int            `json:"weekendShifts"`
	ByDuty        map[string]int `json:"byDuty"`
	Deviation     float64        `json:"deviation"` // 相对均值的偏差百分比
}

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	TotalGini        float64    `json:"totalGini"`   // 总班数基尼系数（0=完全公平）
	NightGini        float64    `json:"nightGini"`   // 夜班基尼系数
	WeekendGini      float64    `json:"weekendGini"` // 周末班基尼系数
	AvgShifts        float64    `json:"avgShifts"`
	MaxShifts        int        `json:"maxShifts"`
	MinShifts        int        `json:"minShifts"`
	ShiftsRange      int        `json:"shiftsRange"` // 极差 max-min
	UserStats        []UserStat `json:"userStats"`
	OverallScore     float64    `json:"overallScore"` // 综合评分 0-100
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 基于请求与分配结果分析公平性
func (f *FairnessAnalyzer) Analyze(req *model.ScheduleRequest, assignments []model.Assignment) (*FairnessMetrics, error) {
	ctx, err := model.NewContext(req)
	if err != nil {
		return nil, err
	}

	stats := make([]UserStat, len(ctx.Users))
	for i, u := range ctx.Users {
		stats[i] = UserStat{
			UserID:   u.ID,
			UserName: u.Name,
			ByDuty:   make(map[string]int),
		}
	}

	for _, a := range assignments {
		uIdx, uOK := ctx.UserIndex[a.UserID]
		sIdx, sOK := ctx.SlotIndex[a.SlotID]
		if !uOK || !sOK {
			continue
		}
		slot := ctx.Slots[sIdx]
		stats[uIdx].ShiftCount++
		stats[uIdx].ByDuty[string(slot.DutyType)]++
		if slot.DutyType.IsNight() {
			stats[uIdx].NightShifts++
		}
		if slot.DutyType.IsWeekend() {
			stats[uIdx].WeekendShifts++
		}
	}

	totals := make([]float64, len(stats))
	nights := make([]float64, len(stats))
	weekends := make([]float64, len(stats))
	maxShifts, minShifts := 0, 0
	for i, st := range stats {
		totals[i] = float64(st.ShiftCount)
		nights[i] = float64(st.NightShifts)
		weekends[i] = float64(st.WeekendShifts)
		if i == 0 || st.ShiftCount > maxShifts {
			maxShifts = st.ShiftCount
		}
		if i == 0 || st.ShiftCount < minShifts {
			minShifts = st.ShiftCount
		}
	}

	avg := mean(totals)
	for i := range stats {
		if avg > 0 {
			stats[i].Deviation = (totals[i] - avg) / avg * 100
		}
	}

	m := &FairnessMetrics{
		TotalGini:   gini(totals),
		NightGini:   gini(nights),
		WeekendGini: gini(weekends),
		AvgShifts:   avg,
		MaxShifts:   maxShifts,
		MinShifts:   minShifts,
		ShiftsRange: maxShifts - minShifts,
		UserStats:   stats,
	}
	m.OverallScore = overallScore(m)
	return m, nil
}

// mean 算术平均
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// gini 基尼系数（0=完全公平，1=完全不公平）
func gini(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)

	sum := 0.0
	weighted := 0.0
	for i, x := range sorted {
		sum += x
		weighted += float64(i+1) * x
	}
	if sum == 0 {
		return 0
	}
	return (2*weighted - float64(n+1)*sum) / (float64(n) * sum)
}

// overallScore 综合评分：基尼系数与极差的加权折算，0-100
func overallScore(m *FairnessMetrics) float64 {
	score := 100.0
	score -= m.TotalGini * 60
	score -= m.NightGini * 20
	score -= m.WeekendGini * 20
	if m.ShiftsRange > 2 {
		score -= float64(m.ShiftsRange-2) * 5
	}
	return math.Max(0, math.Round(score*10)/10)
}
