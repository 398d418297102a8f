package constraint

import (
	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"github.com/zhiban/zhiban/pkg/model"
)

// HardBuilder 向模型提交标准模式的硬约束，这些约束绝不允许违反
type HardBuilder struct {
	b   *cpmodel.Builder
	ctx *model.Context
	v   *Vars
}

// NewHardBuilder 创建标准模式硬约束构建器
func NewHardBuilder(b *cpmodel.Builder, ctx *model.Context, v *Vars) *HardBuilder {
	return &HardBuilder{b: b, ctx: ctx, v: v}
}

// AddAll 提交全部硬约束，maxShifts 为人均上限（base+2，放宽重试时 base+3）
func (h *HardBuilder) AddAll(maxShifts int64) {
	h.addSeatExclusivity()
	h.addSingleOccupancy()
	h.addDailyCap()
	h.addMaxShifts(maxShifts)
	h.addForbiddenTransitions()
	h.addCoverage()
}

// addSeatExclusivity 每个座位恰好一人
func (h *HardBuilder) addSeatExclusivity() {
	for s, slot := range h.ctx.Slots {
		for k := range slot.Seats {
			e := cpmodel.NewLinearExpr()
			for u := range h.ctx.Users {
				e.Add(h.v.X[u][s][k])
			}
			h.b.AddEquality(e, cpmodel.NewConstant(1))
		}
	}
}

// addSingleOccupancy 同一槽位内一人最多占一个座位
func (h *HardBuilder) addSingleOccupancy() {
	for u := range h.ctx.Users {
		for s := range h.ctx.Slots {
			h.b.AddLessOrEqual(h.v.SlotSum(u, s), cpmodel.NewConstant(1))
		}
	}
}

// addDailyCap 同一自然日一人最多 2 班（自动排除 ABC/DEF 三连）
func (h *HardBuilder) addDailyCap() {
	for _, day := range h.ctx.SortedDays() {
		slots := h.ctx.SlotsByDay[day]
		if len(slots) < 2 {
			continue
		}
		for u := range h.ctx.Users {
			h.b.AddLessOrEqual(h.v.SumOver(u, slots), cpmodel.NewConstant(2))
		}
	}
}

// addMaxShifts 人均总班数上限
func (h *HardBuilder) addMaxShifts(maxShifts int64) {
	for u := range h.ctx.Users {
		h.b.AddLessOrEqual(h.v.Count[u], cpmodel.NewConstant(maxShifts))
	}
}

// addForbiddenTransitions 禁止夜班次日接早班：
// 第 d 日 C/F 与第 d+1 日 A/D 不得同属一人
func (h *HardBuilder) addForbiddenTransitions() {
	for _, day := range h.ctx.SortedDays() {
		slots := h.ctx.SlotsByDay[day]
		nextSlots, ok := h.ctx.SlotsByDay[day+1]
		if !ok {
			continue
		}

		var nights, mornings []int
		for _, s := range slots {
			if h.ctx.Slots[s].DutyType.IsNight() {
				nights = append(nights, s)
			}
		}
		for _, s := range nextSlots {
			if h.ctx.Slots[s].DutyType.IsMorning() {
				mornings = append(mornings, s)
			}
		}
		if len(nights) == 0 || len(mornings) == 0 {
			continue
		}

		for u := range h.ctx.Users {
			for _, n := range nights {
				for _, m := range mornings {
					pair := cpmodel.NewLinearExpr()
					for k := range h.v.X[u][n] {
						pair.Add(h.v.X[u][n][k])
					}
					for k := range h.v.X[u][m] {
						pair.Add(h.v.X[u][m][k])
					}
					h.b.AddLessOrEqual(pair, cpmodel.NewConstant(1))
				}
			}
		}
	}
}

// addCoverage 每个槽位的总占用等于座位数。
// 由座位独占约束可推出，但显式冗余约束有助于求解器传播。
func (h *HardBuilder) addCoverage() {
	for s, slot := range h.ctx.Slots {
		e := cpmodel.NewLinearExpr()
		for u := range h.ctx.Users {
			for k := range h.v.X[u][s] {
				e.Add(h.v.X[u][s][k])
			}
		}
		h.b.AddEquality(e, cpmodel.NewConstant(int64(len(slot.Seats))))
	}
}
