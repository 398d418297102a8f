package solver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/penalty"
)

func newTestSolver() *Solver {
	opts := DefaultOptions()
	opts.TimeLimitSeconds = 10
	return New(opts, penalty.Defaults())
}

func newTestSeniorSolver() *SeniorSolver {
	opts := DefaultOptions()
	opts.TimeLimitSeconds = 10
	return NewSenior(opts, penalty.Defaults())
}

func rolePtr(r model.SeatRole) *model.SeatRole { return &r }

// checkHardInvariants 校验覆盖、唯一性、日上限、人均上限与禁止过渡
func checkHardInvariants(t *testing.T, req *model.ScheduleRequest, resp *model.ScheduleResponse, maxAllowed int) {
	t.Helper()

	sctx, err := model.NewContext(req)
	require.NoError(t, err)

	// P1 覆盖：每个座位恰好一次
	require.Len(t, resp.Assignments, sctx.TotalSeats)
	seatSeen := make(map[string]int)
	for _, a := range resp.Assignments {
		seatSeen[a.SeatID]++
	}
	for _, slot := range sctx.Slots {
		for _, seat := range slot.Seats {
			require.Equal(t, 1, seatSeen[seat.ID], "seat %s", seat.ID)
		}
	}

	// P2 唯一性：同一 (user, slot) 至多一次
	pairSeen := make(map[string]bool)
	userCount := make(map[string]int)
	userDay := make(map[string]map[int]int)
	userDayNight := make(map[string]map[int]bool)
	for _, a := range resp.Assignments {
		key := a.UserID + "/" + a.SlotID
		require.False(t, pairSeen[key], "double booking %s", key)
		pairSeen[key] = true

		userCount[a.UserID]++
		slot := sctx.Slots[sctx.SlotIndex[a.SlotID]]
		if userDay[a.UserID] == nil {
			userDay[a.UserID] = make(map[int]int)
			userDayNight[a.UserID] = make(map[int]bool)
		}
		userDay[a.UserID][slot.DayOffset]++
		if slot.DutyType.IsNight() {
			userDayNight[a.UserID][slot.DayOffset] = true
		}
	}

	// P3 人均上限
	for uid, n := range userCount {
		require.LessOrEqual(t, n, maxAllowed, "user %s over cap", uid)
	}

	// P4 日上限
	for uid, days := range userDay {
		for d, n := range days {
			require.LessOrEqual(t, n, 2, "user %s day %d", uid, d)
		}
	}

	// P5 禁止过渡：夜班次日不接早班
	for uid, nights := range userDayNight {
		for d := range nights {
			for _, a := range resp.Assignments {
				if a.UserID != uid {
					continue
				}
				slot := sctx.Slots[sctx.SlotIndex[a.SlotID]]
				if slot.DayOffset == d+1 && slot.DutyType.IsMorning() {
					t.Fatalf("user %s: night on day %d followed by morning duty", uid, d)
				}
			}
		}
	}

	// P3 isExtra 标记与 meta 一致性
	require.Equal(t, sctx.Base, resp.Meta.Base)
	cum := make(map[string]int)
	for _, a := range resp.Assignments {
		cum[a.UserID]++
		require.Equal(t, cum[a.UserID] > sctx.Base+1, a.IsExtra)
	}
}

// 场景1：单槽位单人
func TestSolveTrivial(t *testing.T) {
	req := &model.ScheduleRequest{
		Period: model.Period{ID: "p1", Name: "十二月", StartDate: "2025-12-01", EndDate: "2025-12-01"},
		Users:  []model.User{{ID: "u1", Name: "用户1"}},
		Slots: []model.Slot{
			{ID: "s1", Date: "2025-12-01", DutyType: model.DutyA, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "seat1", Role: rolePtr(model.RoleOperator)}}},
		},
	}

	resp, err := newTestSolver().Solve(context.Background(), req)
	require.NoError(t, err)
	require.Contains(t, []string{"OPTIMAL", "FEASIBLE"}, resp.Meta.SolverStatus)
	require.Len(t, resp.Assignments, 1)

	a := resp.Assignments[0]
	require.Equal(t, "s1", a.SlotID)
	require.Equal(t, "seat1", a.SeatID)
	require.Equal(t, "u1", a.UserID)
	require.NotNil(t, a.SeatRole)
	require.Equal(t, model.RoleOperator, *a.SeatRole)
	require.False(t, a.IsExtra)
	require.Equal(t, 1, resp.Meta.Base)
	require.Equal(t, 0, resp.Meta.UnavailabilityViolations)
}

// 场景2：A 班 4 个无角色座位 → 2 DESK + 2 OPERATOR，且结果确定
func TestSolveDeskOperatorSplit(t *testing.T) {
	req := &model.ScheduleRequest{
		Period: model.Period{ID: "p1", Name: "十二月", StartDate: "2025-12-01", EndDate: "2025-12-01"},
		Users: []model.User{
			{ID: "u1", Name: "用户1"},
			{ID: "u2", Name: "用户2"},
			{ID: "u3", Name: "用户3"},
			{ID: "u4", Name: "用户4"},
		},
		Slots: []model.Slot{
			{ID: "s1", Date: "2025-12-01", DutyType: model.DutyA, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}, {ID: "a4"}}},
		},
	}

	s := newTestSolver()
	resp, err := s.Solve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 4)

	desk, operator := 0, 0
	for _, a := range resp.Assignments {
		require.NotNil(t, a.SeatRole)
		switch *a.SeatRole {
		case model.RoleDesk:
			desk++
		case model.RoleOperator:
			operator++
		}
	}
	require.Equal(t, 2, desk)
	require.Equal(t, 2, operator)

	// P8 确定性：同种子重解结果一致
	resp2, err := s.Solve(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, resp.Assignments, resp2.Assignments)
}

// 场景3：禁止过渡迫使两人轮换
func TestSolveForbiddenTransition(t *testing.T) {
	req := &model.ScheduleRequest{
		Period: model.Period{ID: "p1", Name: "十二月", StartDate: "2025-12-01", EndDate: "2025-12-02"},
		Users: []model.User{
			{ID: "u1", Name: "用户1"},
			{ID: "u2", Name: "用户2"},
		},
		Slots: []model.Slot{
			{ID: "night", Date: "2025-12-01", DutyType: model.DutyC, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "n1"}}},
			{ID: "morning", Date: "2025-12-02", DutyType: model.DutyA, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "m1"}}},
		},
	}

	resp, err := newTestSolver().Solve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)
	require.NotEqual(t, resp.Assignments[0].UserID, resp.Assignments[1].UserID)
	checkHardInvariants(t, req, resp, 3)
}

// 场景4：可满足的不可用必须被满足
func TestSolveUnavailabilityRespected(t *testing.T) {
	req := &model.ScheduleRequest{
		Period: model.Period{ID: "p1", Name: "十二月", StartDate: "2025-12-01", EndDate: "2025-12-02"},
		Users: []model.User{
			{ID: "u1", Name: "用户1"},
			{ID: "u2", Name: "用户2"},
		},
		Slots: []model.Slot{
			{ID: "s1", Date: "2025-12-01", DutyType: model.DutyA, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "s1-1"}}},
			{ID: "s2", Date: "2025-12-02", DutyType: model.DutyA, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "s2-1"}}},
		},
		Unavailability: []model.Unavailability{{UserID: "u1", SlotID: "s2"}},
	}

	resp, err := newTestSolver().Solve(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 0, resp.Meta.UnavailabilityViolations)

	byUser := make(map[string]string)
	for _, a := range resp.Assignments {
		byUser[a.UserID] = a.SlotID
	}
	require.Equal(t, "s1", byUser["u1"])
	require.Equal(t, "s2", byUser["u2"])
}

// 场景5：全部关闭时仍必须填满，违规计数与警告上报
func TestSolveUnavailabilityForced(t *testing.T) {
	req := &model.ScheduleRequest{
		Period: model.Period{ID: "p1", Name: "十二月", StartDate: "2025-12-01", EndDate: "2025-12-02"},
		Users:  []model.User{{ID: "u1", Name: "用户1"}},
		Slots: []model.Slot{
			{ID: "s1", Date: "2025-12-01", DutyType: model.DutyA, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "s1-1"}}},
			{ID: "s2", Date: "2025-12-02", DutyType: model.DutyA, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "s2-1"}}},
		},
		Unavailability: []model.Unavailability{
			{UserID: "u1", SlotID: "s1"},
			{UserID: "u1", SlotID: "s2"},
		},
	}

	resp, err := newTestSolver().Solve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)
	for _, a := range resp.Assignments {
		require.Equal(t, "u1", a.UserID)
	}
	require.Equal(t, 2, resp.Meta.UnavailabilityViolations)
	require.NotEmpty(t, resp.Meta.Warnings)
}

// 一周 A/B/C 全量场景：硬不变量与公平性
func TestSolveWeekLongFairness(t *testing.T) {
	req := &model.ScheduleRequest{
		Period: model.Period{ID: "p1", Name: "十二月第一周", StartDate: "2025-12-01", EndDate: "2025-12-07"},
	}
	for i := 1; i <= 6; i++ {
		req.Users = append(req.Users, model.User{ID: fmt.Sprintf("u%d", i), Name: fmt.Sprintf("用户%d", i)})
	}
	duties := []struct {
		duty model.DutyType
		day  model.DayType
	}{
		{model.DutyA, model.DayWeekday},
		{model.DutyB, model.DayWeekday},
		{model.DutyC, model.DayWeekday},
	}
	for d := 1; d <= 7; d++ {
		date := fmt.Sprintf("2025-12-%02d", d)
		for _, dd := range duties {
			id := fmt.Sprintf("%s-%d", dd.duty, d)
			req.Slots = append(req.Slots, model.Slot{
				ID: id, Date: date, DutyType: dd.duty, DayType: dd.day,
				Seats: []model.Seat{{ID: id + "-1"}},
			})
		}
	}

	resp, err := newTestSolver().Solve(context.Background(), req)
	require.NoError(t, err)
	require.Contains(t, []string{"OPTIMAL", "FEASIBLE"}, resp.Meta.SolverStatus)

	// 21 座位 / 6 人：base=3
	require.Equal(t, 3, resp.Meta.Base)
	checkHardInvariants(t, req, resp, 5)

	// P9：无不可用压力时 max-min <= 2
	require.LessOrEqual(t, resp.Meta.MaxShifts-resp.Meta.MinShifts, 2)
	require.Equal(t, 0, resp.Meta.UnavailabilityViolations)
}

// 场景6：总值班日内两段分配与偏好
func TestSeniorSolveDaySplit(t *testing.T) {
	req := &model.SeniorScheduleRequest{
		Period: model.Period{ID: "p1", Name: "一月", StartDate: "2026-01-05", EndDate: "2026-01-05"},
		Users: []model.SeniorUser{
			{ID: "n1", Name: "总值班1", LikesMorning: true},
			{ID: "n2", Name: "总值班2"},
		},
		Slots: []model.SeniorSlot{
			{ID: "m1", Date: "2026-01-05", Segment: model.SegmentMorning, Seats: []model.Seat{{ID: "m1-1"}}},
			{ID: "e1", Date: "2026-01-05", Segment: model.SegmentEvening, Seats: []model.Seat{{ID: "e1-1"}}},
		},
	}

	resp, err := newTestSeniorSolver().Solve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)

	bySlot := make(map[string]string)
	for _, a := range resp.Assignments {
		bySlot[a.SlotID] = a.UserID
	}
	// 各拿一段，likesMorning 决定平局
	require.Equal(t, "n1", bySlot["m1"])
	require.Equal(t, "n2", bySlot["e1"])
}

// 总值班模式：三座位段的角色按配额表为 2 DESK + 1 OPERATOR
func TestSeniorSolveRoles(t *testing.T) {
	req := &model.SeniorScheduleRequest{
		Period: model.Period{ID: "p1", Name: "一月", StartDate: "2026-01-05", EndDate: "2026-01-05"},
		Users: []model.SeniorUser{
			{ID: "n1", Name: "总值班1"},
			{ID: "n2", Name: "总值班2"},
			{ID: "n3", Name: "总值班3"},
		},
		Slots: []model.SeniorSlot{
			{ID: "m1", Date: "2026-01-05", Segment: model.SegmentMorning,
				Seats: []model.Seat{{ID: "m1-1"}, {ID: "m1-2"}, {ID: "m1-3"}}},
		},
	}

	resp, err := newTestSeniorSolver().Solve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 3)

	desk, operator := 0, 0
	for _, a := range resp.Assignments {
		require.NotNil(t, a.SeatRole)
		if *a.SeatRole == model.RoleDesk {
			desk++
		} else {
			operator++
		}
	}
	// 3 人配额 (2,1)
	require.Equal(t, 2, desk)
	require.Equal(t, 1, operator)
}

// 预设角色座位优先生效
func TestSolvePreassignedRolesHonored(t *testing.T) {
	req := &model.ScheduleRequest{
		Period: model.Period{ID: "p1", Name: "十二月", StartDate: "2025-12-01", EndDate: "2025-12-01"},
		Users: []model.User{
			{ID: "u1", Name: "用户1"},
			{ID: "u2", Name: "用户2"},
		},
		Slots: []model.Slot{
			{ID: "s1", Date: "2025-12-01", DutyType: model.DutyA, DayType: model.DayWeekday,
				Seats: []model.Seat{
					{ID: "a1", Role: rolePtr(model.RoleDesk)},
					{ID: "a2"},
				}},
		},
	}

	resp, err := newTestSolver().Solve(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Assignments, 2)

	bySeat := make(map[string]model.SeatRole)
	for _, a := range resp.Assignments {
		require.NotNil(t, a.SeatRole)
		bySeat[a.SeatID] = *a.SeatRole
	}
	// 2 人配额 (1,1)：预设 DESK 占掉配额，剩余座位为 OPERATOR
	require.Equal(t, model.RoleDesk, bySeat["a1"])
	require.Equal(t, model.RoleOperator, bySeat["a2"])
}
