package constraint

import (
	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"github.com/zhiban/zhiban/pkg/model"
)

// SeniorHardBuilder 总值班模式硬约束。
// 无夜班，故不存在禁止过渡约束；同日上午+下午合计 2 即为日上限。
type SeniorHardBuilder struct {
	b   *cpmodel.Builder
	ctx *model.SeniorContext
	v   *Vars
}

// NewSeniorHardBuilder 创建总值班模式硬约束构建器
func NewSeniorHardBuilder(b *cpmodel.Builder, ctx *model.SeniorContext, v *Vars) *SeniorHardBuilder {
	return &SeniorHardBuilder{b: b, ctx: ctx, v: v}
}

// AddAll 提交全部硬约束
func (h *SeniorHardBuilder) AddAll(maxShifts int64) {
	// 每个座位恰好一人
	for s, slot := range h.ctx.Slots {
		for k := range slot.Seats {
			e := cpmodel.NewLinearExpr()
			for u := range h.ctx.Users {
				e.Add(h.v.X[u][s][k])
			}
			h.b.AddEquality(e, cpmodel.NewConstant(1))
		}
	}

	// 同一槽位内一人最多占一个座位
	for u := range h.ctx.Users {
		for s := range h.ctx.Slots {
			h.b.AddLessOrEqual(h.v.SlotSum(u, s), cpmodel.NewConstant(1))
		}
	}

	// 同一自然日最多 2 段
	for _, day := range h.ctx.SortedDays() {
		slots := h.ctx.SlotsByDay[day]
		if len(slots) < 2 {
			continue
		}
		for u := range h.ctx.Users {
			h.b.AddLessOrEqual(h.v.SumOver(u, slots), cpmodel.NewConstant(2))
		}
	}

	// 人均总段数上限
	for u := range h.ctx.Users {
		h.b.AddLessOrEqual(h.v.Count[u], cpmodel.NewConstant(maxShifts))
	}

	// 冗余覆盖约束
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
