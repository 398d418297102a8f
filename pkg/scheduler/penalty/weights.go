// Package penalty 构建软约束目标函数
//
// 权重分层使高层违规在数值上压倒任何低层组合，形成近似字典序的优先级。
package penalty

// Weights 各级软约束权重（正为惩罚，负为奖励）
type Weights struct {
	// Level 1 – 极重
	Unavailability        int64 // 不可用仍被指派，每次
	BelowIdealStrong      int64 // 低于 ideal-2 的部分，每单位
	AboveIdealStrong      int64 // 高于 ideal+2 的部分，每单位
	ZeroShifts            int64 // 整期 0 班指示
	UnavailabilityTie     int64 // 全员关闭时的类别平局项
	UnavailabilityRepeat  int64 // 同一人第 2 次起的每次额外违规

	// Level 2 – 重
	Consecutive3Days int64 // 连续 3 天窗口，每个

	// Level 3 – 公平性
	IdealSoft       int64 // ideal±2 以内的偏差，每单位
	HistoryFairness int64 // |actual-ideal| 次级信号，每单位
	DutyTypeFair    int64 // A/B/C 各类型离散度
	NightFair       int64 // 夜班 (C+F) 离散度
	WeekendSlotFair int64 // D/E/F 各自离散度

	// Level 4 – 舒适度
	WeeklyCluster    int64 // 单周超过 2 班的部分，每单位
	TwoShiftsSameDay int64 // 同日 2 班，每日
	ConsecutiveNight int64 // 相邻两日均为夜班，每对

	// Level 5 – 偏好
	DislikesWeekend int64 // 厌周末者排周末，每次
	LikesNight      int64 // 喜夜班者排夜班的奖励（取负）
	LikesSegment    int64 // 总值班模式：偏好分段命中的奖励（取负）

	// 总值班模式公平性
	SegmentFair int64 // MORNING/EVENING 各自离散度
}

// Defaults 返回默认权重
func Defaults() Weights {
	return Weights{
		Unavailability:       200_000,
		BelowIdealStrong:     140_000,
		AboveIdealStrong:     120_000,
		ZeroShifts:           80_000,
		UnavailabilityTie:    1_000,
		UnavailabilityRepeat: 25_000,

		Consecutive3Days: 7_000,

		IdealSoft:       4_000,
		HistoryFairness: 3_000,
		DutyTypeFair:    1_000,
		NightFair:       1_000,
		WeekendSlotFair: 50,

		WeeklyCluster:    100,
		TwoShiftsSameDay: 100,
		ConsecutiveNight: 100,

		DislikesWeekend: 10,
		LikesNight:      5,
		LikesSegment:    5,

		SegmentFair: 1_000,
	}
}
