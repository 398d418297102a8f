// Package solver 配置并驱动 CP-SAT 求解，解码分配并计算元数据
package solver

import (
	"sort"

	"github.com/zhiban/zhiban/pkg/model"
)

// DeskOperatorSplit 标准模式 A 班 n 人的 DESK/OPERATOR 配额。
//
// n=1..7 按固定表：(0,1) (1,1) (1,2) (2,2) (3,2) (3,3) (4,3)；
// n>=8 时 DESK=⌈n/2⌉。
func DeskOperatorSplit(n int) (desk, operator int) {
	if n <= 0 {
		return 0, 0
	}
	table := map[int][2]int{
		1: {0, 1},
		2: {1, 1},
		3: {1, 2},
		4: {2, 2},
		5: {3, 2},
		6: {3, 3},
		7: {4, 3},
	}
	if d, ok := table[n]; ok {
		return d[0], d[1]
	}
	desk = (n + 1) / 2
	return desk, n - desk
}

// SeniorDeskOperatorSplit 总值班模式 n 人的 DESK/OPERATOR 配额。
//
// n=1..3 按固定表：(0,1) (1,1) (2,1)；n>=4 时 DESK=⌈2n/3⌉。
func SeniorDeskOperatorSplit(n int) (desk, operator int) {
	if n <= 0 {
		return 0, 0
	}
	switch n {
	case 1:
		return 0, 1
	case 2:
		return 1, 1
	case 3:
		return 2, 1
	}
	desk = (2*n + 2) / 3
	return desk, n - desk
}

// roleBalancer 跨槽位追踪本期已派角色数，用于历史+当期均衡
type roleBalancer struct {
	desk     map[string]int
	operator map[string]int
}

func newRoleBalancer() *roleBalancer {
	return &roleBalancer{desk: make(map[string]int), operator: make(map[string]int)}
}

// assignDeskOperatorRoles 为标准模式 A 班分配座位角色。
//
// 先遵从座位上预设的角色，再按配额表分配无角色座位：
// 无角色座位按座位 ID 排序，DESK 配额优先从历史+当期 DESK
// 较少的人中选出，其余为 OPERATOR。
func assignDeskOperatorRoles(ctx *model.Context, assignments []model.Assignment) {
	bySlot := make(map[string][]int)
	for i, a := range assignments {
		slot := ctx.Slots[ctx.SlotIndex[a.SlotID]]
		if slot.DutyType == model.DutyA {
			bySlot[a.SlotID] = append(bySlot[a.SlotID], i)
		}
	}

	bal := newRoleBalancer()

	// 槽位按输入顺序处理，保证确定性
	for _, slot := range ctx.Slots {
		idxs, ok := bySlot[slot.ID]
		if !ok {
			continue
		}
		deskTarget, _ := DeskOperatorSplit(len(idxs))

		seatRole := make(map[string]*model.SeatRole)
		for _, seat := range slot.Seats {
			seatRole[seat.ID] = seat.Role
		}

		// 预设角色座位先占配额
		deskRemaining := deskTarget
		var nullIdxs []int
		for _, i := range idxs {
			role := seatRole[assignments[i].SeatID]
			if role == nil {
				nullIdxs = append(nullIdxs, i)
				continue
			}
			r := *role
			assignments[i].SeatRole = &r
			if r == model.RoleDesk {
				bal.desk[assignments[i].UserID]++
				if deskRemaining > 0 {
					deskRemaining--
				}
			} else {
				bal.operator[assignments[i].UserID]++
			}
		}
		if len(nullIdxs) == 0 {
			continue
		}
		if deskRemaining > len(nullIdxs) {
			deskRemaining = len(nullIdxs)
		}

		// 无角色座位按座位 ID 排序
		sort.Slice(nullIdxs, func(a, b int) bool {
			return assignments[nullIdxs[a]].SeatID < assignments[nullIdxs[b]].SeatID
		})

		// 人选按 DESK 负担升序，负担相同按用户 ID 保证确定性
		users := make([]string, len(nullIdxs))
		for i, idx := range nullIdxs {
			users[i] = assignments[idx].UserID
		}
		sort.Slice(users, func(a, b int) bool {
			ua, ub := users[a], users[b]
			da := historyDesk(ctx, ua) + bal.desk[ua]
			db := historyDesk(ctx, ub) + bal.desk[ub]
			if da != db {
				return da < db
			}
			if bal.desk[ua] != bal.desk[ub] {
				return bal.desk[ua] < bal.desk[ub]
			}
			return ua < ub
		})

		// DESK 配额先填，座位顺序与人选顺序一一配对
		for i, idx := range nullIdxs {
			uid := users[i]
			assignments[idx].UserID = uid
			var r model.SeatRole
			if i < deskRemaining {
				r = model.RoleDesk
				bal.desk[uid]++
			} else {
				r = model.RoleOperator
				bal.operator[uid]++
			}
			assignments[idx].SeatRole = &r
		}
	}
}

func historyDesk(ctx *model.Context, userID string) int {
	if idx, ok := ctx.UserIndex[userID]; ok {
		return ctx.Users[idx].History.CountDeskAllTime
	}
	return 0
}

// assignSeniorRoles 为总值班模式分配座位角色（按总值班配额表）
func assignSeniorRoles(ctx *model.SeniorContext, assignments []model.Assignment) {
	bySlot := make(map[string][]int)
	for i, a := range assignments {
		bySlot[a.SlotID] = append(bySlot[a.SlotID], i)
	}

	for _, slot := range ctx.Slots {
		idxs, ok := bySlot[slot.ID]
		if !ok {
			continue
		}
		deskTarget, _ := SeniorDeskOperatorSplit(len(idxs))

		seatRole := make(map[string]*model.SeatRole)
		for _, seat := range slot.Seats {
			seatRole[seat.ID] = seat.Role
		}

		deskRemaining := deskTarget
		var nullIdxs []int
		for _, i := range idxs {
			role := seatRole[assignments[i].SeatID]
			if role == nil {
				nullIdxs = append(nullIdxs, i)
				continue
			}
			r := *role
			assignments[i].SeatRole = &r
			if r == model.RoleDesk && deskRemaining > 0 {
				deskRemaining--
			}
		}

		sort.Slice(nullIdxs, func(a, b int) bool {
			return assignments[nullIdxs[a]].SeatID < assignments[nullIdxs[b]].SeatID
		})
		for i, idx := range nullIdxs {
			var r model.SeatRole
			if i < deskRemaining {
				r = model.RoleDesk
			} else {
				r = model.RoleOperator
			}
			assignments[idx].SeatRole = &r
		}
	}
}
