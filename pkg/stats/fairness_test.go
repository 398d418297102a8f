package stats

import (
	"math"
	"testing"

	"github.com/zhiban/zhiban/pkg/model"
)

func statsRequest() *model.ScheduleRequest {
	return &model.ScheduleRequest{
		Period: model.Period{ID: "p1", Name: "十二月", StartDate: "2025-12-01", EndDate: "2025-12-02"},
		Users: []model.User{
			{ID: "u1", Name: "用户1"},
			{ID: "u2", Name: "用户2"},
		},
		Slots: []model.Slot{
			{ID: "s1", Date: "2025-12-01", DutyType: model.DutyC, DayType: model.DayWeekday,
				Seats: []model.Seat{{ID: "s1-1"}}},
			{ID: "s2", Date: "2025-12-02", DutyType: model.DutyF, DayType: model.DayWeekend,
				Seats: []model.Seat{{ID: "s2-1"}}},
			{ID: "s3", Date: "2025-12-02", DutyType: model.DutyD, DayType: model.DayWeekend,
				Seats: []model.Seat{{ID: "s3-1"}}},
		},
	}
}

func TestAnalyzeCounts(t *testing.T) {
	analyzer := NewFairnessAnalyzer()
	assignments := []model.Assignment{
		{SlotID: "s1", SeatID: "s1-1", UserID: "u1"},
		{SlotID: "s2", SeatID: "s2-1", UserID: "u2"},
		{SlotID: "s3", SeatID: "s3-1", UserID: "u2"},
	}

	m, err := analyzer.Analyze(statsRequest(), assignments)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if m.MaxShifts != 2 || m.MinShifts != 1 || m.ShiftsRange != 1 {
		t.Errorf("max/min/range = %d/%d/%d", m.MaxShifts, m.MinShifts, m.ShiftsRange)
	}
	if m.AvgShifts != 1.5 {
		t.Errorf("avg = %f, want 1.5", m.AvgShifts)
	}

	// u1: 1 夜班；u2: F 夜班 + D/F 周末班
	u1 := m.UserStats[0]
	if u1.NightShifts != 1 || u1.WeekendShifts != 0 {
		t.Errorf("u1 night/weekend = %d/%d", u1.NightShifts, u1.WeekendShifts)
	}
	u2 := m.UserStats[1]
	if u2.NightShifts != 1 || u2.WeekendShifts != 2 {
		t.Errorf("u2 night/weekend = %d/%d", u2.NightShifts, u2.WeekendShifts)
	}
	if u2.ByDuty["F"] != 1 || u2.ByDuty["D"] != 1 {
		t.Errorf("u2 byDuty = %v", u2.ByDuty)
	}

	if m.TotalGini < 0 || m.TotalGini > 1 {
		t.Errorf("gini out of range: %f", m.TotalGini)
	}
	if m.OverallScore < 0 || m.OverallScore > 100 {
		t.Errorf("score out of range: %f", m.OverallScore)
	}
}

func TestGini(t *testing.T) {
	if g := gini([]float64{2, 2, 2}); g != 0 {
		t.Errorf("equal distribution gini = %f, want 0", g)
	}
	if g := gini(nil); g != 0 {
		t.Errorf("empty gini = %f, want 0", g)
	}
	// 完全集中时接近 (n-1)/n
	g := gini([]float64{0, 0, 6})
	if math.Abs(g-2.0/3.0) > 1e-9 {
		t.Errorf("concentrated gini = %f, want 2/3", g)
	}
}

func TestAnalyzePerfectFairness(t *testing.T) {
	analyzer := NewFairnessAnalyzer()
	assignments := []model.Assignment{
		{SlotID: "s1", SeatID: "s1-1", UserID: "u1"},
		{SlotID: "s2", SeatID: "s2-1", UserID: "u2"},
	}
	req := statsRequest()
	req.Slots = req.Slots[:2]

	m, err := analyzer.Analyze(req, assignments)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if m.TotalGini != 0 {
		t.Errorf("gini = %f, want 0", m.TotalGini)
	}
	if m.ShiftsRange != 0 {
		t.Errorf("range = %d, want 0", m.ShiftsRange)
	}
}
