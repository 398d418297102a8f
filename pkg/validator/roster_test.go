package validator

import (
	"testing"

	"github.com/zhiban/zhiban/pkg/model"
)

func validRequest() *model.ScheduleRequest {
	return &model.ScheduleRequest{
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
}

func TestValidateCleanRoster(t *testing.T) {
	v := NewRosterValidator()
	assignments := []model.Assignment{
		{SlotID: "night", SeatID: "n1", UserID: "u1"},
		{SlotID: "morning", SeatID: "m1", UserID: "u2"},
	}

	conflicts, err := v.Validate(validRequest(), assignments)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", conflicts)
	}
	if HasErrors(conflicts) {
		t.Error("HasErrors should be false")
	}
}

func TestValidateForbiddenTransition(t *testing.T) {
	v := NewRosterValidator()
	// u1 夜班次日接早班
	assignments := []model.Assignment{
		{SlotID: "night", SeatID: "n1", UserID: "u1"},
		{SlotID: "morning", SeatID: "m1", UserID: "u1"},
	}

	conflicts, err := v.Validate(validRequest(), assignments)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !hasType(conflicts, ConflictTransition) {
		t.Errorf("expected transition conflict, got %v", conflicts)
	}
	if !HasErrors(conflicts) {
		t.Error("HasErrors should be true")
	}
}

func TestValidateMissingCoverage(t *testing.T) {
	v := NewRosterValidator()
	assignments := []model.Assignment{
		{SlotID: "night", SeatID: "n1", UserID: "u1"},
	}

	conflicts, err := v.Validate(validRequest(), assignments)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !hasType(conflicts, ConflictCoverage) {
		t.Errorf("expected coverage conflict, got %v", conflicts)
	}
}

func TestValidateDoubleBooked(t *testing.T) {
	req := validRequest()
	req.Slots[0].Seats = append(req.Slots[0].Seats, model.Seat{ID: "n2"})

	v := NewRosterValidator()
	assignments := []model.Assignment{
		{SlotID: "night", SeatID: "n1", UserID: "u1"},
		{SlotID: "night", SeatID: "n2", UserID: "u1"},
		{SlotID: "morning", SeatID: "m1", UserID: "u2"},
	}

	conflicts, err := v.Validate(req, assignments)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !hasType(conflicts, ConflictDoubleBooked) {
		t.Errorf("expected double booking conflict, got %v", conflicts)
	}
}

func TestValidateUnknownRef(t *testing.T) {
	v := NewRosterValidator()
	assignments := []model.Assignment{
		{SlotID: "night", SeatID: "n1", UserID: "ghost"},
		{SlotID: "morning", SeatID: "m1", UserID: "u2"},
	}

	conflicts, err := v.Validate(validRequest(), assignments)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !hasType(conflicts, ConflictUnknownRef) {
		t.Errorf("expected unknown ref conflict, got %v", conflicts)
	}
}

func TestValidateUnavailabilityWarning(t *testing.T) {
	req := validRequest()
	req.Unavailability = []model.Unavailability{{UserID: "u1", SlotID: "night"}}

	v := NewRosterValidator()
	assignments := []model.Assignment{
		{SlotID: "night", SeatID: "n1", UserID: "u1"},
		{SlotID: "morning", SeatID: "m1", UserID: "u2"},
	}

	conflicts, err := v.Validate(req, assignments)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !hasType(conflicts, ConflictUnavailable) {
		t.Errorf("expected unavailable warning, got %v", conflicts)
	}
	// 不可用违背只是 warning，不构成 error
	if HasErrors(conflicts) {
		t.Error("unavailability breach should not be an error")
	}
}

func hasType(conflicts []Conflict, ct ConflictType) bool {
	for _, c := range conflicts {
		if c.Type == ct {
			return true
		}
	}
	return false
}
