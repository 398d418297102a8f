// 求解上下文：请求解析后的内部结构，预计算索引与派生量
package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/zhiban/zhiban/pkg/errors"
)

// ContextUser 上下文内的用户（带索引与派生量）
type ContextUser struct {
	User
	Index int
	Ideal int // 本期目标值班数（含历史欠账修正）
	Rank  int // 按 (totalAllTime, id) 升序的确定性排序位次
}

// ContextSlot 上下文内的槽位（带索引与日偏移）
type ContextSlot struct {
	Slot
	Index     int
	Date      time.Time
	DayOffset int // 相对周期起始日的天数
}

// Context 标准模式求解上下文
type Context struct {
	Period Period
	Users  []*ContextUser
	Slots  []*ContextSlot

	UserIndex map[string]int
	SlotIndex map[string]int

	// (userIndex, slotIndex) 不可用集合
	Unavailable map[[2]int]bool

	// 日偏移 -> 槽位索引列表
	SlotsByDay map[int][]int

	TotalSeats int
	Base       int
	Remainder  int

	// 不可用公平性：按类别（A/B/C/Weekend）统计各用户关闭的槽位数
	BlockedByCategory map[int]map[string]int
	MaxBlockedByCat   map[string]int
	TotalBlocked      map[int]int
	MaxTotalBlocked   int
}

// IsUnavailable 判断用户对槽位是否不可用
func (c *Context) IsUnavailable(userIdx, slotIdx int) bool {
	return c.Unavailable[[2]int{userIdx, slotIdx}]
}

// parseDate 解析 YYYY-MM-DD 日期
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, errors.InvalidRequest(field, fmt.Sprintf("日期格式无效: %q", value))
	}
	return t, nil
}

// dayOffset 相对起始日的整天数
func dayOffset(start, d time.Time) int {
	return int(d.Sub(start).Hours() / 24)
}

// NewContext 从请求构建标准模式上下文，请求非法时返回 InvalidRequest
func NewContext(req *ScheduleRequest) (*Context, error) {
	start, err := parseDate("period.startDate", req.Period.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("period.endDate", req.Period.EndDate)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, errors.InvalidRequest("period", "startDate 晚于 endDate")
	}

	ctx := &Context{
		Period:            req.Period,
		UserIndex:         make(map[string]int),
		SlotIndex:         make(map[string]int),
		Unavailable:       make(map[[2]int]bool),
		SlotsByDay:        make(map[int][]int),
		BlockedByCategory: make(map[int]map[string]int),
		MaxBlockedByCat:   map[string]int{"A": 0, "B": 0, "C": 0, "Weekend": 0},
		TotalBlocked:      make(map[int]int),
	}

	for i := range req.Users {
		u := req.Users[i]
		if _, dup := ctx.UserIndex[u.ID]; dup {
			return nil, errors.InvalidRequest("users", "用户ID重复: "+u.ID)
		}
		ctx.UserIndex[u.ID] = i
		ctx.Users = append(ctx.Users, &ContextUser{User: u, Index: i})
		ctx.BlockedByCategory[i] = map[string]int{"A": 0, "B": 0, "C": 0, "Weekend": 0}
	}

	seatIDs := make(map[string]bool)
	for i := range req.Slots {
		s := req.Slots[i]
		if _, dup := ctx.SlotIndex[s.ID]; dup {
			return nil, errors.InvalidRequest("slots", "槽位ID重复: "+s.ID)
		}
		if !s.DutyType.Valid() {
			return nil, errors.InvalidRequest("slots", fmt.Sprintf("槽位 %s 的值班类型未知: %q", s.ID, s.DutyType))
		}
		if len(s.Seats) == 0 {
			return nil, errors.InvalidRequest("slots", "槽位 "+s.ID+" 没有座位")
		}
		for _, seat := range s.Seats {
			if seatIDs[seat.ID] {
				return nil, errors.InvalidRequest("slots", "座位ID重复: "+seat.ID)
			}
			seatIDs[seat.ID] = true
		}
		d, err := parseDate("slots.date", s.Date)
		if err != nil {
			return nil, err
		}
		cs := &ContextSlot{Slot: s, Index: i, Date: d, DayOffset: dayOffset(start, d)}
		ctx.SlotIndex[s.ID] = i
		ctx.Slots = append(ctx.Slots, cs)
		ctx.SlotsByDay[cs.DayOffset] = append(ctx.SlotsByDay[cs.DayOffset], i)
		ctx.TotalSeats += len(s.Seats)
	}

	// 不可用记录：未知ID静默忽略，避免前端脏数据导致整单失败
	for _, ua := range req.Unavailability {
		uIdx, uOK := ctx.UserIndex[ua.UserID]
		sIdx, sOK := ctx.SlotIndex[ua.SlotID]
		if !uOK || !sOK {
			continue
		}
		key := [2]int{uIdx, sIdx}
		if ctx.Unavailable[key] {
			continue
		}
		ctx.Unavailable[key] = true

		cat := ctx.Slots[sIdx].DutyType.Category()
		ctx.BlockedByCategory[uIdx][cat]++
		if ctx.BlockedByCategory[uIdx][cat] > ctx.MaxBlockedByCat[cat] {
			ctx.MaxBlockedByCat[cat] = ctx.BlockedByCategory[uIdx][cat]
		}
		ctx.TotalBlocked[uIdx]++
		if ctx.TotalBlocked[uIdx] > ctx.MaxTotalBlocked {
			ctx.MaxTotalBlocked = ctx.TotalBlocked[uIdx]
		}
	}

	if len(ctx.Users) == 0 {
		return nil, errors.InvalidRequest("users", "用户列表为空")
	}
	if len(ctx.Slots) == 0 {
		return nil, errors.InvalidRequest("slots", "槽位列表为空")
	}
	ctx.Base = ctx.TotalSeats / len(ctx.Users)
	ctx.Remainder = ctx.TotalSeats - ctx.Base*len(ctx.Users)
	ctx.computeIdeals()
	ctx.computeRanks()

	return ctx, nil
}

// computeIdeals 计算各用户本期目标值班数
//
// fark = totalAllTime - expectedTotal（历史欠账为负、超额为正）
// ideal = clamp(base - fark, 0, base+2)
// 新用户（expectedTotal=0）视为 fark=0，拿正常份额
func (c *Context) computeIdeals() {
	for _, u := range c.Users {
		fark := 0
		if u.History.ExpectedTotal > 0 {
			fark = u.History.TotalAllTime() - u.History.ExpectedTotal
		}
		ideal := c.Base - fark
		if ideal < 0 {
			ideal = 0
		}
		if ideal > c.Base+2 {
			ideal = c.Base + 2
		}
		u.Ideal = ideal
	}
}

// computeRanks 确定性平局排序：(totalAllTime, id) 升序
func (c *Context) computeRanks() {
	order := make([]*ContextUser, len(c.Users))
	copy(order, c.Users)
	sort.Slice(order, func(i, j int) bool {
		ti, tj := order[i].History.TotalAllTime(), order[j].History.TotalAllTime()
		if ti != tj {
			return ti < tj
		}
		return order[i].ID < order[j].ID
	})
	for rank, u := range order {
		u.Rank = rank
	}
}

// SortedDays 返回升序的日偏移列表
func (c *Context) SortedDays() []int {
	days := make([]int, 0, len(c.SlotsByDay))
	for d := range c.SlotsByDay {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// SeniorContextUser 总值班模式上下文用户
type SeniorContextUser struct {
	SeniorUser
	Index int
	Rank  int
}

// SeniorContextSlot 总值班模式上下文槽位
type SeniorContextSlot struct {
	SeniorSlot
	Index     int
	Date      time.Time
	DayOffset int
}

// SeniorContext 总值班模式求解上下文
type SeniorContext struct {
	Period Period
	Users  []*SeniorContextUser
	Slots  []*SeniorContextSlot

	UserIndex map[string]int
	SlotIndex map[string]int

	Unavailable map[[2]int]bool
	SlotsByDay  map[int][]int

	TotalSeats int
	Base       int
	Remainder  int
}

// IsUnavailable 判断用户对槽位是否不可用
func (c *SeniorContext) IsUnavailable(userIdx, slotIdx int) bool {
	return c.Unavailable[[2]int{userIdx, slotIdx}]
}

// SortedDays 返回升序的日偏移列表
func (c *SeniorContext) SortedDays() []int {
	days := make([]int, 0, len(c.SlotsByDay))
	for d := range c.SlotsByDay {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// NewSeniorContext 从请求构建总值班模式上下文
func NewSeniorContext(req *SeniorScheduleRequest) (*SeniorContext, error) {
	start, err := parseDate("period.startDate", req.Period.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("period.endDate", req.Period.EndDate)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, errors.InvalidRequest("period", "startDate 晚于 endDate")
	}

	ctx := &SeniorContext{
		Period:      req.Period,
		UserIndex:   make(map[string]int),
		SlotIndex:   make(map[string]int),
		Unavailable: make(map[[2]int]bool),
		SlotsByDay:  make(map[int][]int),
	}

	for i := range req.Users {
		u := req.Users[i]
		if _, dup := ctx.UserIndex[u.ID]; dup {
			return nil, errors.InvalidRequest("users", "用户ID重复: "+u.ID)
		}
		ctx.UserIndex[u.ID] = i
		ctx.Users = append(ctx.Users, &SeniorContextUser{SeniorUser: u, Index: i})
	}

	seatIDs := make(map[string]bool)
	for i := range req.Slots {
		s := req.Slots[i]
		if s.DutyType == "" {
			s.DutyType = DutyA
		}
		if s.DutyType != DutyA {
			return nil, errors.InvalidRequest("slots", fmt.Sprintf("槽位 %s 的值班类型必须为 A: %q", s.ID, s.DutyType))
		}
		if !s.Segment.Valid() {
			return nil, errors.InvalidRequest("slots", fmt.Sprintf("槽位 %s 的分段未知: %q", s.ID, s.Segment))
		}
		if _, dup := ctx.SlotIndex[s.ID]; dup {
			return nil, errors.InvalidRequest("slots", "槽位ID重复: "+s.ID)
		}
		if len(s.Seats) == 0 {
			return nil, errors.InvalidRequest("slots", "槽位 "+s.ID+" 没有座位")
		}
		for _, seat := range s.Seats {
			if seatIDs[seat.ID] {
				return nil, errors.InvalidRequest("slots", "座位ID重复: "+seat.ID)
			}
			seatIDs[seat.ID] = true
		}
		d, err := parseDate("slots.date", s.Date)
		if err != nil {
			return nil, err
		}
		cs := &SeniorContextSlot{SeniorSlot: s, Index: i, Date: d, DayOffset: dayOffset(start, d)}
		ctx.SlotIndex[s.ID] = i
		ctx.Slots = append(ctx.Slots, cs)
		ctx.SlotsByDay[cs.DayOffset] = append(ctx.SlotsByDay[cs.DayOffset], i)
		ctx.TotalSeats += len(s.Seats)
	}

	for _, ua := range req.Unavailability {
		uIdx, uOK := ctx.UserIndex[ua.UserID]
		sIdx, sOK := ctx.SlotIndex[ua.SlotID]
		if !uOK || !sOK {
			continue
		}
		ctx.Unavailable[[2]int{uIdx, sIdx}] = true
	}

	if len(ctx.Users) == 0 {
		return nil, errors.InvalidRequest("users", "用户列表为空")
	}
	if len(ctx.Slots) == 0 {
		return nil, errors.InvalidRequest("slots", "槽位列表为空")
	}
	ctx.Base = ctx.TotalSeats / len(ctx.Users)
	ctx.Remainder = ctx.TotalSeats - ctx.Base*len(ctx.Users)

	// 确定性平局排序：(totalAllTime, id) 升序
	order := make([]*SeniorContextUser, len(ctx.Users))
	copy(order, ctx.Users)
	sort.Slice(order, func(i, j int) bool {
		if order[i].History.TotalAllTime != order[j].History.TotalAllTime {
			return order[i].History.TotalAllTime < order[j].History.TotalAllTime
		}
		return order[i].ID < order[j].ID
	})
	for rank, u := range order {
		u.Rank = rank
	}

	return ctx, nil
}
