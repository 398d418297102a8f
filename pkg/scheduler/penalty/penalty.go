package penalty

import (
	"sort"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/constraint"
)

// Builder 构建标准模式的加权惩罚目标
type Builder struct {
	b   *cpmodel.Builder
	ctx *model.Context
	v   *constraint.Vars
	w   Weights

	obj *cpmodel.LinearExpr

	// (userIndex, dayOffset) -> 当日是否有班指示变量
	dayHas map[[2]int]cpmodel.BoolVar
	// (userIndex, dayOffset) -> 当日是否有夜班指示变量
	nightHas map[[2]int]cpmodel.BoolVar
}

// NewBuilder 创建标准模式惩罚构建器
func NewBuilder(b *cpmodel.Builder, ctx *model.Context, v *constraint.Vars, w Weights) *Builder {
	return &Builder{
		b:        b,
		ctx:      ctx,
		v:        v,
		w:        w,
		obj:      cpmodel.NewLinearExpr(),
		dayHas:   make(map[[2]int]cpmodel.BoolVar),
		nightHas: make(map[[2]int]cpmodel.BoolVar),
	}
}

// addTerm 追加一个惩罚项（负权重为奖励）
func (p *Builder) addTerm(arg cpmodel.LinearArgument, weight int64) {
	if weight != 0 {
		p.obj.AddTerm(arg, weight)
	}
}

// Objective 返回待最小化的总惩罚表达式
func (p *Builder) Objective() *cpmodel.LinearExpr {
	return p.obj
}

// AddAll 构建全部惩罚项
func (p *Builder) AddAll() {
	p.addUnavailability()
	p.addIdealDeviation()
	p.addZeroShifts()
	p.addConsecutiveDays()
	p.addDutyTypeFairness()
	p.addNightFairness()
	p.addWeekendSlotFairness()
	p.addWeeklyClustering()
	p.addTwoShiftsSameDay()
	p.addConsecutiveNights()
	p.addPreferences()
	p.addDeterminismTieBreak()
}

// addUnavailability 不可用惩罚——最重的软规则。
//
// 固定部分 = 基础权重 + 类别平局项 + 总量平局项：
// 当某槽位被全员关闭、必须有人顶上时，平局项让该类别中
// 关闭最多的人承担（关得多 → 附加惩罚低）。
//
// 追加部分：同一人第 2 次起的每次违规再罚一档，
// 迫使违规在人群中摊开而不是压在一个人身上。
func (p *Builder) addUnavailability() {
	// 固定遍历顺序，保证两次构建产生相同模型
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

	blockedByUser := make(map[int][]int)
	var blockedUsers []int
	for _, key := range keys {
		u, s := key[0], key[1]
		if len(blockedByUser[u]) == 0 {
			blockedUsers = append(blockedUsers, u)
		}
		blockedByUser[u] = append(blockedByUser[u], s)

		cat := p.ctx.Slots[s].DutyType.Category()
		catExtra := int64(p.ctx.MaxBlockedByCat[cat]-p.ctx.BlockedByCategory[u][cat]) * p.w.UnavailabilityTie
		totalExtra := int64(p.ctx.MaxTotalBlocked-p.ctx.TotalBlocked[u]) * (p.w.UnavailabilityTie / 10)

		p.addTerm(p.v.SlotSum(u, s), p.w.Unavailability+catExtra+totalExtra)
	}

	for _, u := range blockedUsers {
		slots := blockedByUser[u]
		if len(slots) < 2 {
			continue
		}
		vcount := p.v.SumOver(u, slots)

		// excess >= vcount - 1，最小化使其取到 max(0, vcount-1)
		excess := p.b.NewIntVar(0, int64(len(slots)))
		p.b.AddGreaterOrEqual(cpmodel.NewLinearExpr().Add(excess).AddConstant(1), vcount)
		p.addTerm(excess, p.w.UnavailabilityRepeat)
	}
}

// addIdealDeviation 对每人相对 ideal 的偏差分层计罚。
//
// actual - ideal = over - under；over/under 再各拆两段：
// ±2 以内按软权重，超出部分按强权重（欠班 140k 略重于超班 120k）。
// |actual - ideal| 总量另计一份历史公平次级信号。
func (p *Builder) addIdealDeviation() {
	maxPossible := int64(p.ctx.TotalSeats)

	for u, user := range p.ctx.Users {
		over := p.b.NewIntVar(0, maxPossible)
		under := p.b.NewIntVar(0, int64(user.Ideal)+1)

		// count - over + under == ideal
		balance := cpmodel.NewLinearExpr().
			Add(p.v.Count[u]).
			AddTerm(over, -1).
			AddTerm(under, 1)
		p.b.AddEquality(balance, cpmodel.NewConstant(int64(user.Ideal)))

		overSoft := p.b.NewIntVar(0, 2)
		overHard := p.b.NewIntVar(0, maxPossible)
		p.b.AddEquality(cpmodel.NewLinearExpr().Add(overSoft).Add(overHard), over)

		underSoft := p.b.NewIntVar(0, 2)
		underHard := p.b.NewIntVar(0, int64(user.Ideal)+1)
		p.b.AddEquality(cpmodel.NewLinearExpr().Add(underSoft).Add(underHard), under)

		p.addTerm(overSoft, p.w.IdealSoft)
		p.addTerm(overHard, p.w.AboveIdealStrong)
		p.addTerm(underSoft, p.w.IdealSoft)
		p.addTerm(underHard, p.w.BelowIdealStrong)

		p.addTerm(over, p.w.HistoryFairness)
		p.addTerm(under, p.w.HistoryFairness)
	}
}

// addZeroShifts 整期 0 班指示惩罚
func (p *Builder) addZeroShifts() {
	for u := range p.ctx.Users {
		isZero := p.b.NewBoolVar()
		p.b.AddEquality(p.v.Count[u], cpmodel.NewConstant(0)).OnlyEnforceIf(isZero)
		p.b.AddGreaterOrEqual(p.v.Count[u], cpmodel.NewConstant(1)).OnlyEnforceIf(isZero.Not())
		p.addTerm(isZero, p.w.ZeroShifts)
	}
}

// dayIndicator 用户 u 第 day 日是否有班（恰等价编码）
func (p *Builder) dayIndicator(u, day int) cpmodel.BoolVar {
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

// addConsecutiveDays 连续 3 天有班的窗口计罚
func (p *Builder) addConsecutiveDays() {
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

			// z + 2 >= y1+y2+y3：三日全有班时 z 被压为 1
			z := p.b.NewBoolVar()
			window := cpmodel.NewLinearExpr().Add(y1).Add(y2).Add(y3)
			p.b.AddGreaterOrEqual(cpmodel.NewLinearExpr().Add(z).AddConstant(2), window)
			p.addTerm(z, p.w.Consecutive3Days)
		}
	}
}

// dispersionPenalty 一组槽位上的 min-max 离散度惩罚：
// 每用户在该组上的班数 count，罚 (max - min) * weight
func (p *Builder) dispersionPenalty(slots []int, weight int64) {
	if len(slots) == 0 || len(p.ctx.Users) < 2 || weight == 0 {
		return
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
	p.addTerm(rangeV, weight)
}

// slotsOfDuty 指定类型的槽位索引
func (p *Builder) slotsOfDuty(d model.DutyType) []int {
	var out []int
	for s, slot := range p.ctx.Slots {
		if slot.DutyType == d {
			out = append(out, s)
		}
	}
	return out
}

// addDutyTypeFairness A/B/C 各类型的分配离散度
func (p *Builder) addDutyTypeFairness() {
	for _, d := range []model.DutyType{model.DutyA, model.DutyB, model.DutyC} {
		p.dispersionPenalty(p.slotsOfDuty(d), p.w.DutyTypeFair)
	}
}

// addNightFairness 夜班 (C+F) 总量离散度
func (p *Builder) addNightFairness() {
	var nights []int
	for s, slot := range p.ctx.Slots {
		if slot.DutyType.IsNight() {
			nights = append(nights, s)
		}
	}
	p.dispersionPenalty(nights, p.w.NightFair)
}

// addWeekendSlotFairness D/E/F 各自的分配离散度
func (p *Builder) addWeekendSlotFairness() {
	for _, d := range []model.DutyType{model.DutyD, model.DutyE, model.DutyF} {
		p.dispersionPenalty(p.slotsOfDuty(d), p.w.WeekendSlotFair)
	}
}

// addWeeklyClustering 单个 ISO 周内超过 2 班的部分计罚
func (p *Builder) addWeeklyClustering() {
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
			weekSum := p.v.SumOver(u, slots)

			// slack >= weekSum - 2
			slack := p.b.NewIntVar(0, int64(len(slots)))
			p.b.AddGreaterOrEqual(cpmodel.NewLinearExpr().Add(slack).AddConstant(2), weekSum)
			p.addTerm(slack, p.w.WeeklyCluster)
		}
	}
}

// addTwoShiftsSameDay 同日恰 2 班的舒适度惩罚。
// 日上限硬约束已限定 ≤2，故 isTwo >= daySum-1 即为恰 2 指示。
func (p *Builder) addTwoShiftsSameDay() {
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

// nightIndicator 用户 u 第 day 日是否有夜班
func (p *Builder) nightIndicator(u, day int, nights []int) cpmodel.BoolVar {
	key := [2]int{u, day}
	if y, ok := p.nightHas[key]; ok {
		return y
	}
	y := p.b.NewBoolVar()
	nightSum := p.v.SumOver(u, nights)
	p.b.AddGreaterOrEqual(nightSum, cpmodel.NewConstant(1)).OnlyEnforceIf(y)
	p.b.AddEquality(nightSum, cpmodel.NewConstant(0)).OnlyEnforceIf(y.Not())
	p.nightHas[key] = y
	return y
}

// addConsecutiveNights 相邻两日均有夜班的舒适度惩罚
func (p *Builder) addConsecutiveNights() {
	nightsOfDay := make(map[int][]int)
	for s, slot := range p.ctx.Slots {
		if slot.DutyType.IsNight() {
			nightsOfDay[slot.DayOffset] = append(nightsOfDay[slot.DayOffset], s)
		}
	}

	days := p.ctx.SortedDays()
	for i := 0; i+1 < len(days); i++ {
		d1, d2 := days[i], days[i+1]
		if d2 != d1+1 {
			continue
		}
		n1, n2 := nightsOfDay[d1], nightsOfDay[d2]
		if len(n1) == 0 || len(n2) == 0 {
			continue
		}

		for u := range p.ctx.Users {
			y1 := p.nightIndicator(u, d1, n1)
			y2 := p.nightIndicator(u, d2, n2)

			both := p.b.NewBoolVar()
			pair := cpmodel.NewLinearExpr().Add(y1).Add(y2)
			p.b.AddGreaterOrEqual(cpmodel.NewLinearExpr().Add(both).AddConstant(1), pair)
			p.addTerm(both, p.w.ConsecutiveNight)
		}
	}
}

// addPreferences 个人偏好：厌周末计罚、喜夜班给奖励
func (p *Builder) addPreferences() {
	for u, user := range p.ctx.Users {
		for s, slot := range p.ctx.Slots {
			if user.DislikesWeekend && slot.DutyType.IsWeekend() {
				p.addTerm(p.v.SlotSum(u, s), p.w.DislikesWeekend)
			}
			if user.LikesNight && slot.DutyType.IsNight() {
				p.addTerm(p.v.SlotSum(u, s), -p.w.LikesNight)
			}
		}
	}
}

// addDeterminismTieBreak 确定性平局项：
// (totalAllTime, id) 越靠后的人每班多付 1 分微小成本，
// 配合固定随机种子使等价解之间的选择稳定。
func (p *Builder) addDeterminismTieBreak() {
	for u, user := range p.ctx.Users {
		p.addTerm(p.v.Count[u], int64(user.Rank))
	}
}
