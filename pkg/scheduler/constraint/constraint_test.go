package constraint

import (
	"testing"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"github.com/zhiban/zhiban/pkg/model"
)

func buildContext(t *testing.T) *model.Context {
	t.Helper()
	req := &model.ScheduleRequest{
		Period: model.Period{ID: "p1", Name: "十二月", StartDate: "2025-12-01", EndDate: "2025-12-03"},
		Users: []model.User{
			{ID: "u1", Name: "用户1"},
			{ID: "u2", Name: "用户2"},
			{ID: "u3", Name: "用户3"},
		},
		Slots: []model.Slot{
			{ID: "a1", Date: "2025-12-01", DutyType: model.DutyA, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "a1-1"}, {ID: "a1-2"}}},
			{ID: "c1", Date: "2025-12-01", DutyType: model.DutyC, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "c1-1"}}},
			{ID: "a2", Date: "2025-12-02", DutyType: model.DutyA, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "a2-1"}}},
		},
	}
	ctx, err := model.NewContext(req)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx
}

func TestNewVarsShape(t *testing.T) {
	b := cpmodel.NewCpModelBuilder()
	ctx := buildContext(t)

	seatCounts := make([]int, len(ctx.Slots))
	for i, slot := range ctx.Slots {
		seatCounts[i] = len(slot.Seats)
	}
	v := NewVars(b, len(ctx.Users), seatCounts)

	if len(v.X) != 3 {
		t.Fatalf("user dim = %d, want 3", len(v.X))
	}
	if len(v.X[0]) != 3 {
		t.Fatalf("slot dim = %d, want 3", len(v.X[0]))
	}
	if len(v.X[0][0]) != 2 || len(v.X[0][1]) != 1 {
		t.Error("seat dims wrong")
	}
	if len(v.Count) != 3 {
		t.Error("count vars missing")
	}
}

// 模型能成功实例化为 proto（约束无类型错误）
func TestHardBuilderProducesValidModel(t *testing.T) {
	b := cpmodel.NewCpModelBuilder()
	ctx := buildContext(t)

	seatCounts := make([]int, len(ctx.Slots))
	for i, slot := range ctx.Slots {
		seatCounts[i] = len(slot.Seats)
	}
	v := NewVars(b, len(ctx.Users), seatCounts)
	NewHardBuilder(b, ctx, v).AddAll(int64(ctx.Base + 2))

	if _, err := b.Model(); err != nil {
		t.Fatalf("Model: %v", err)
	}
}
