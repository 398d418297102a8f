package penalty

import (
	"sort"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/constraint"
)

// SeniorBuilder 构建总值班模式的加权惩罚目标
type SeniorBuilder struct {
	b   *cpmodel.Builder
	ctx *model.SeniorContext
	v   *constraint.Vars
	w   Weights

	obj    *cpmodel.LinearExpr
	dayHas map[[2]int]cpmodel.BoolVar
}

// NewSeniorBuilder 创建总值班模式惩罚构建器
func NewSeniorBuilder(b *cpmodel.Builder, ctx *model.SeniorContext, v *constraint.Vars, w Weights) *SeniorBuilder {
	return &SeniorBuilder{
		b:      b,
		ctx:    ctx,
		v:      v,
		w:      w,
		obj:    cpmodel.NewLinearExpr(),
		dayHas: make(map[[2]int]cpmodel.BoolVar),
	}
}

func (p *SeniorBuilder) addTerm(arg cpmodel.LinearArgument, weight int64) {
	if weight != 0 {
		p.obj.AddTerm(arg, weight)
	}
}

// Objective 返回待最小化的总惩罚表达式
func (p *SeniorBuilder) Objective() *cpmodel.LinearExpr {
	return p.obj
}

// AddAll 构建全部惩罚项
func (p *SeniorBuilder) AddAll() {
	p.addUnavailability()
	p.addAboveIdeal()
	p.addConsecutiveDays()
	p.addSegmentFairness()
	p.addHistoryFairness()
	p.addWeeklyClustering()
	p.addBothSegmentsSameDay()
	p.addPreferences()
	p.addDeterminismTieBreak()
}

// addUnavailability 不可用惩罚——最重的软规则
func (p *SeniorBuilder) addUnavailability() {
	keys := make([][2]int, 0, len(p.ctx.Unavailable))
	for key := range p.ctx.Unavailable {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	for _, key := range keys {
		p.addTerm(p.v.SlotSum(key[0], key[1]), p.w.Unavailability)
	}
}

// addAboveIdeal 超出 base+1 的段数按强权重计罚，
// 把被推到 base+2 的人数压到最少
func (p *SeniorBuilder) addAboveIdeal() {
	safeLimit := int64(p.ctx.Base + 1)
	for u := range p.ctx.Users {
		excess := p.b.NewIntVar(0, int64(p.ctx.TotalSeats))
		p.b.AddGreaterOrEqual(cpmodel.NewLinearExpr().Add(excess).AddConstant(safeLimit), p.v.Count[u])
		p.addTerm(excess, p.w.AboveIdealStrong)
	}
}

// dayIndicator 用户 u 第 day 日是否有段（恰等价编码）
func (p *SeniorBuilder) dayIndicator(u, day int) cpmodel.BoolVar {
	key := [2]int{u, day}
	if y, ok := p.dayHas[key]; ok {
		return y
	}
	y := p.b.NewBoolVar()
	daySum := p.v.SumOver(u, p.ctx.SlotsByDay[day])
	p.b.AddGreaterOrEqual(daySum, cpmodel.NewConstant(1)).OnlyEnforceIf(y)
	p.b.AddEquality(daySum, cpmodel.NewConstant(0)).OnlyEnforceIf(y.Not())
	p.dayHas[key] = y
	return y
}

// addConsecutiveDays 连续 3 天有段的窗口计罚
func (p *SeniorBuilder) addConsecutiveDays() {
	days := p.ctx.SortedDays()
	for i := 0; i+2 < len(days); i++ {
		d1, d2, d3 := days[i], days[i+1], days[i+2]
		if d2 != d1+1 || d3 != d2+1 {
			continue
		}
		for u := range p.ctx.Users {
			y1 := p.dayIndicator(u, d1)
			y2 := p.dayIndicator(u, d2)
			y3 := p.dayIndicator(u, d3)

			z := p.b.NewBoolVar()
			window := cpmodel.NewLinearExpr().Add(y1).Add(y2).Add(y3)
			p.b.AddGreaterOrEqual(cpmodel.NewLinearExpr().Add(z).AddConstant(2), window)
			p.addTerm(z, p.w.Consecutive3Days)
		}
	}
}

// addSegmentFairness 上午段/下午段各自的分配离散度
func (p *SeniorBuilder) addSegmentFairness() {
	if len(p.ctx.Users) < 2 {
		return
	}
	for _, seg := range []model.Segment{model.SegmentMorning, model.SegmentEvening} {
		var slots []int
		for s, slot := range p.ctx.Slots {
			if slot.Segment == seg {
				slots = append(slots, s)
			}
		}
		if len(slots) == 0 {
			continue
		}

		bound := int64(0)
		for _, s := range slots {
			bound += int64(len(p.ctx.Slots[s].Seats))
		}

		maxV := p.b.NewIntVar(0, bound)
		minV := p.b.NewIntVar(0, bound)
		for u := range p.ctx.Users {
			cnt := p.b.NewIntVar(0, bound)
			p.b.AddEquality(cnt, p.v.SumOver(u, slots))
			p.b.AddGreaterOrEqual(maxV, cnt)
			p.b.AddLessOrEqual(minV, cnt)
		}

		rangeV := p.b.NewIntVar(0, bound)
		p.b.AddEquality(rangeV, cpmodel.NewLinearExpr().Add(maxV).AddTerm(minV, -1))
		p.addTerm(rangeV, p.w.SegmentFair)
	}
}

// addHistoryFairness 历史 A 班总量与群体均值的偏差计罚。
// longTerm = 历史A + 本期段数；|longTerm - avg| = over + under
func (p *SeniorBuilder) addHistoryFairness() {
	n := len(p.ctx.Users)
	if n < 2 {
		return
	}
	sum := 0
	for _, u := range p.ctx.Users {
		sum += u.History.CountAAllTime
	}
	avg := sum / n

	bound := int64(p.ctx.TotalSeats + sum)
	for u, user := range p.ctx.Users {
		over := p.b.NewIntVar(0, bound)
		under := p.b.NewIntVar(0, bound)

		// count - over + under == avg - historyA
		balance := cpmodel.NewLinearExpr().
			Add(p.v.Count[u]).
			AddTerm(over, -1).
			AddTerm(under, 1)
		p.b.AddEquality(balance, cpmodel.NewConstant(int64(avg-user.History.CountAAllTime)))

		p.addTerm(over, p.w.HistoryFairness)
		p.addTerm(under, p.w.HistoryFairness)
	}
}

// addWeeklyClustering 单个 ISO 周内超过 2 段的部分计罚
func (p *SeniorBuilder) addWeeklyClustering() {
	weekSlots := make(map[int][]int)
	for s, slot := range p.ctx.Slots {
		year, week := slot.Date.ISOWeek()
		key := year*100 + week
		weekSlots[key] = append(weekSlots[key], s)
	}

	weeks := make([]int, 0, len(weekSlots))
	for w := range weekSlots {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	for _, w := range weeks {
		slots := weekSlots[w]
		if len(slots) < 3 {
			continue
		}
		for u := range p.ctx.Users {
			slack := p.b.NewIntVar(0, int64(len(slots)))
			p.b.AddGreaterOrEqual(cpmodel.NewLinearExpr().Add(slack).AddConstant(2), p.v.SumOver(u, slots))
			p.addTerm(slack, p.w.WeeklyCluster)
		}
	}
}

// addBothSegmentsSameDay 同日上午+下午两段的舒适度惩罚
func (p *SeniorBuilder) addBothSegmentsSameDay() {
	for _, day := range p.ctx.SortedDays() {
		slots := p.ctx.SlotsByDay[day]
		if len(slots) < 2 {
			continue
		}
		for u := range p.ctx.Users {
			daySum := p.v.SumOver(u, slots)
			isTwo := p.b.NewBoolVar()
			p.b.AddGreaterOrEqual(cpmodel.NewLinearExpr().Add(isTwo).AddConstant(1), daySum)
			p.addTerm(isTwo, p.w.TwoShiftsSameDay)
		}
	}
}

// addPreferences 分段偏好命中给奖励
func (p *SeniorBuilder) addPreferences() {
	for u, user := range p.ctx.Users {
		for s, slot := range p.ctx.Slots {
			if user.LikesMorning && slot.Segment == model.SegmentMorning {
				p.addTerm(p.v.SlotSum(u, s), -p.w.LikesSegment)
			}
			if user.LikesEvening && slot.Segment == model.SegmentEvening {
				p.addTerm(p.v.SlotSum(u, s), -p.w.LikesSegment)
			}
		}
	}
}

// addDeterminismTieBreak 确定性平局项，见标准模式说明
func (p *SeniorBuilder) addDeterminismTieBreak() {
	for u, user := range p.ctx.Users {
		p.addTerm(p.v.Count[u], int64(user.Rank))
	}
}
