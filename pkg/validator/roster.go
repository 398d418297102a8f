// Package validator 提供排班结果校验功能
package validator

import (
	"fmt"

	"github.com/zhiban/zhiban/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictCoverage     ConflictType = "coverage"      // 座位未填或重复填
	ConflictDoubleBooked ConflictType = "double_booked" // 同一槽位同一人多座
	ConflictDailyCap     ConflictType = "daily_cap"     // 单日超过 2 班
	ConflictTransition   ConflictType = "transition"    // 夜班次日接早班
	ConflictMaxShifts    ConflictType = "max_shifts"    // 超过 base+2 上限
	ConflictUnknownRef   ConflictType = "unknown_ref"   // 引用了不存在的ID
	ConflictUnavailable  ConflictType = "unavailable"   // 违背不可用申请
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	Severity string       `json:"severity"` // error/warning
	UserID   string       `json:"userId,omitempty"`
	SlotID   string       `json:"slotId,omitempty"`
	SeatID   string       `json:"seatId,omitempty"`
	Message  string       `json:"message"`
}

// RosterValidator 按硬规则校验一份排班结果
type RosterValidator struct{}

// NewRosterValidator 创建校验器
func NewRosterValidator() *RosterValidator {
	return &RosterValidator{}
}

// Validate 校验 assignments 是否满足请求的全部硬规则。
// 不可用违背按 warning 上报，其余均为 error。
func (v *RosterValidator) Validate(req *model.ScheduleRequest, assignments []model.Assignment) ([]Conflict, error) {
	ctx, err := model.NewContext(req)
	if err != nil {
		return nil, err
	}

	var conflicts []Conflict

	// 座位 -> 槽位索引
	seatSlot := make(map[string]int)
	for si, slot := range ctx.Slots {
		for _, seat := range slot.Seats {
			seatSlot[seat.ID] = si
		}
	}

	seatFilled := make(map[string]int)
	userSlot := make(map[[2]int]int)   // (user, slot) -> 次数
	userDay := make(map[[2]int]int)    // (user, day) -> 次数
	userCount := make(map[int]int)     // user -> 总数
	userDayDuty := make(map[int]map[int][]model.DutyType)

	for _, a := range assignments {
		uIdx, uOK := ctx.UserIndex[a.UserID]
		sIdx, sOK := ctx.SlotIndex[a.SlotID]
		if !uOK || !sOK {
			conflicts = append(conflicts, Conflict{
				Type: ConflictUnknownRef, Severity: "error",
				UserID: a.UserID, SlotID: a.SlotID, SeatID: a.SeatID,
				Message: "分配引用了请求中不存在的用户或槽位",
			})
			continue
		}
		ownerSlot, seatOK := seatSlot[a.SeatID]
		if !seatOK || ownerSlot != sIdx {
			conflicts = append(conflicts, Conflict{
				Type: ConflictUnknownRef, Severity: "error",
				UserID: a.UserID, SlotID: a.SlotID, SeatID: a.SeatID,
				Message: "座位不存在或不属于该槽位",
			})
			continue
		}

		seatFilled[a.SeatID]++
		userSlot[[2]int{uIdx, sIdx}]++
		userCount[uIdx]++

		slot := ctx.Slots[sIdx]
		userDay[[2]int{uIdx, slot.DayOffset}]++
		if userDayDuty[uIdx] == nil {
			userDayDuty[uIdx] = make(map[int][]model.DutyType)
		}
		userDayDuty[uIdx][slot.DayOffset] = append(userDayDuty[uIdx][slot.DayOffset], slot.DutyType)

		if ctx.IsUnavailable(uIdx, sIdx) {
			conflicts = append(conflicts, Conflict{
				Type: ConflictUnavailable, Severity: "warning",
				UserID: a.UserID, SlotID: a.SlotID,
				Message: "用户对该槽位提交过不可用申请",
			})
		}
	}

	// 覆盖：每个座位恰好一次
	for _, slot := range ctx.Slots {
		for _, seat := range slot.Seats {
			n := seatFilled[seat.ID]
			if n != 1 {
				conflicts = append(conflicts, Conflict{
					Type: ConflictCoverage, Severity: "error",
					SlotID: slot.ID, SeatID: seat.ID,
					Message: fmt.Sprintf("座位被填 %d 次，应恰好 1 次", n),
				})
			}
		}
	}

	// 同一槽位同一人最多一座
	for key, n := range userSlot {
		if n > 1 {
			conflicts = append(conflicts, Conflict{
				Type: ConflictDoubleBooked, Severity: "error",
				UserID: ctx.Users[key[0]].ID, SlotID: ctx.Slots[key[1]].ID,
				Message: fmt.Sprintf("同一槽位被分配 %d 个座位", n),
			})
		}
	}

	// 单日上限
	for key, n := range userDay {
		if n > 2 {
			conflicts = append(conflicts, Conflict{
				Type: ConflictDailyCap, Severity: "error",
				UserID: ctx.Users[key[0]].ID,
				Message: fmt.Sprintf("第 %d 天分配了 %d 班，超过每日 2 班上限", key[1], n),
			})
		}
	}

	// 人均上限 base+2
	for uIdx, n := range userCount {
		if n > ctx.Base+2 {
			conflicts = append(conflicts, Conflict{
				Type: ConflictMaxShifts, Severity: "error",
				UserID: ctx.Users[uIdx].ID,
				Message: fmt.Sprintf("总班数 %d 超过上限 base+2=%d", n, ctx.Base+2),
			})
		}
	}

	// 禁止过渡：第 d 日 C/F 后第 d+1 日 A/D
	for uIdx, byDay := range userDayDuty {
		for day, duties := range byDay {
			hasNight := false
			for _, d := range duties {
				if d.IsNight() {
					hasNight = true
					break
				}
			}
			if !hasNight {
				continue
			}
			for _, next := range byDay[day+1] {
				if next.IsMorning() {
					conflicts = append(conflicts, Conflict{
						Type: ConflictTransition, Severity: "error",
						UserID: ctx.Users[uIdx].ID,
						Message: fmt.Sprintf("第 %d 天夜班后第 %d 天接早班", day, day+1),
					})
					break
				}
			}
		}
	}

	return conflicts, nil
}

// HasErrors 判断冲突列表中是否有 error 级别的冲突
func HasErrors(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == "error" {
			return true
		}
	}
	return false
}
