package model

import "testing"

func TestDutyTypeClassification(t *testing.T) {
	cases := []struct {
		duty    DutyType
		night   bool
		weekend bool
		morning bool
	}{
		{DutyA, false, false, true},
		{DutyB, false, false, false},
		{DutyC, true, false, false},
		{DutyD, false, true, true},
		{DutyE, false, true, false},
		{DutyF, true, true, false},
	}

	for _, c := range cases {
		if c.duty.IsNight() != c.night {
			t.Errorf("%s: IsNight = %v, want %v", c.duty, c.duty.IsNight(), c.night)
		}
		if c.duty.IsWeekend() != c.weekend {
			t.Errorf("%s: IsWeekend = %v, want %v", c.duty, c.duty.IsWeekend(), c.weekend)
		}
		if c.duty.IsMorning() != c.morning {
			t.Errorf("%s: IsMorning = %v, want %v", c.duty, c.duty.IsMorning(), c.morning)
		}
	}
}

func TestDutyTypeCategory(t *testing.T) {
	if got := DutyB.Category(); got != "B" {
		t.Errorf("B category = %s", got)
	}
	for _, d := range []DutyType{DutyD, DutyE, DutyF} {
		if got := d.Category(); got != "Weekend" {
			t.Errorf("%s category = %s, want Weekend", d, got)
		}
	}
}

func TestDutyTypeValid(t *testing.T) {
	if !DutyA.Valid() {
		t.Error("A should be valid")
	}
	if DutyType("G").Valid() {
		t.Error("G should be invalid")
	}
	if DutyType("").Valid() {
		t.Error("empty should be invalid")
	}
}

func TestUserHistoryTotals(t *testing.T) {
	h := UserHistory{
		WeekdayCount: 12,
		WeekendCount: 4,
		SlotTypeCounts: SlotTypeCounts{
			A: 3, B: 5, C: 2, D: 2, E: 1, F: 1,
		},
	}

	if got := h.TotalAllTime(); got != 16 {
		t.Errorf("TotalAllTime = %d, want 16", got)
	}
	// 夜班 = C + F
	if got := h.NightAllTime(); got != 3 {
		t.Errorf("NightAllTime = %d, want 3", got)
	}
	if got := h.WeekendAllTime(); got != 4 {
		t.Errorf("WeekendAllTime = %d, want 4", got)
	}
}

func TestSegmentValid(t *testing.T) {
	if !SegmentMorning.Valid() || !SegmentEvening.Valid() {
		t.Error("MORNING/EVENING should be valid")
	}
	if Segment("NOON").Valid() {
		t.Error("NOON should be invalid")
	}
}
