package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"google.golang.org/protobuf/proto"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"
	sppb "github.com/google/or-tools/ortools/sat/proto/satparameters"

	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/logger"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/constraint"
	"github.com/zhiban/zhiban/pkg/scheduler/penalty"
)

// Options 求解器配置
type Options struct {
	TimeLimitSeconds int
	RandomSeed       int
	NumWorkers       int
}

// DefaultOptions 返回默认配置
func DefaultOptions() Options {
	return Options{
		TimeLimitSeconds: 60,
		RandomSeed:       42,
		NumWorkers:       4,
	}
}

// Solver 标准模式排班求解器
type Solver struct {
	opts    Options
	weights penalty.Weights
	log     *logger.SolverLogger
}

// New 创建标准模式求解器
func New(opts Options, weights penalty.Weights) *Solver {
	return &Solver{opts: opts, weights: weights, log: logger.NewSolverLogger("standard")}
}

// Solve 求解一次排班请求
func (s *Solver) Solve(ctx context.Context, req *model.ScheduleRequest) (*model.ScheduleResponse, error) {
	start := time.Now()

	sctx, err := model.NewContext(req)
	if err != nil {
		return nil, err
	}

	s.log.StartSolve(sctx.Period.ID, len(sctx.Users), len(sctx.Slots), sctx.TotalSeats)

	var warnings []string

	maxShifts := int64(sctx.Base + 2)
	resp, v, err := s.solveOnce(ctx, sctx, maxShifts)
	if err != nil {
		return nil, err
	}

	// 不可行时放宽人均上限到 base+3 再试一次
	relaxed := false
	if resp.GetStatus() == cmpb.CpSolverStatus_INFEASIBLE {
		relaxed = true
		maxShifts = int64(sctx.Base + 3)
		s.log.RelaxRetry(sctx.Period.ID, int(maxShifts))
		warnings = append(warnings, "模型在人均上限 base+2 下不可行，已放宽到 base+3 重试。")
		resp, v, err = s.solveOnce(ctx, sctx, maxShifts)
		if err != nil {
			return nil, err
		}
	}

	status := resp.GetStatus()
	elapsed := time.Since(start)

	if status != cmpb.CpSolverStatus_OPTIMAL && status != cmpb.CpSolverStatus_FEASIBLE {
		if status == cmpb.CpSolverStatus_MODEL_INVALID {
			return nil, errors.New(errors.CodeSolverFault, "求解器报告模型无效")
		}
		// 超时未得解与被证不可行统一按 INFEASIBLE 上报
		statusName := "INFEASIBLE"
		warnings = append(warnings, fmt.Sprintf(
			"求解状态 %s：未找到可行解，可能原因是不可用过度集中或人数不足（座位 %d，人数 %d，上限 %d）。",
			status.String(), sctx.TotalSeats, len(sctx.Users), maxShifts))
		s.log.SolveComplete(sctx.Period.ID, statusName, elapsed, 0)
		return &model.ScheduleResponse{
			Assignments: []model.Assignment{},
			Meta: model.ScheduleMeta{
				Base:         sctx.Base,
				TotalSlots:   len(sctx.Slots),
				Warnings:     warnings,
				SolverStatus: statusName,
				SolveTimeMs:  float64(elapsed.Microseconds()) / 1000.0,
			},
		}, nil
	}

	assignments := s.decode(sctx, resp, v)
	assignDeskOperatorRoles(sctx, assignments)
	markExtras(assignments, sctx.Base)

	meta := s.buildMeta(sctx, resp, v, assignments, warnings, relaxed)
	meta.SolverStatus = status.String()
	meta.SolveTimeMs = float64(time.Since(start).Microseconds()) / 1000.0

	s.log.SolveComplete(sctx.Period.ID, meta.SolverStatus, elapsed, meta.UnavailabilityViolations)

	return &model.ScheduleResponse{Assignments: assignments, Meta: meta}, nil
}

// solveOnce 构建模型并求解一次
func (s *Solver) solveOnce(ctx context.Context, sctx *model.Context, maxShifts int64) (*cmpb.CpSolverResponse, *constraint.Vars, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeInternal, "排班请求已取消")
	}

	b := cpmodel.NewCpModelBuilder()

	seatCounts := make([]int, len(sctx.Slots))
	for i, slot := range sctx.Slots {
		seatCounts[i] = len(slot.Seats)
	}
	v := constraint.NewVars(b, len(sctx.Users), seatCounts)

	constraint.NewHardBuilder(b, sctx, v).AddAll(maxShifts)

	pb := penalty.NewBuilder(b, sctx, v, s.weights)
	pb.AddAll()
	b.Minimize(pb.Objective())

	m, err := b.Model()
	if err != nil {
		return nil, nil, errors.SolverFault(err)
	}

	resp, err := cpmodel.SolveCpModelWithParameters(m, satParams(s.opts))
	if err != nil {
		return nil, nil, errors.SolverFault(err)
	}
	return resp, v, nil
}

// satParams 求解器参数：时间上限、固定种子、并行度、关闭日志
func satParams(opts Options) *sppb.SatParameters {
	return &sppb.SatParameters{
		MaxTimeInSeconds:  proto.Float64(float64(opts.TimeLimitSeconds)),
		RandomSeed:        proto.Int32(int32(opts.RandomSeed)),
		NumWorkers:        proto.Int32(int32(opts.NumWorkers)),
		LogSearchProgress: proto.Bool(false),
	}
}

// decode 提取 x[u][s][k]=1 的分配，槽位按输入顺序、座位按槽内顺序
func (s *Solver) decode(sctx *model.Context, resp *cmpb.CpSolverResponse, v *constraint.Vars) []model.Assignment {
	assignments := make([]model.Assignment, 0, sctx.TotalSeats)
	for si, slot := range sctx.Slots {
		for k, seat := range slot.Seats {
			for u, user := range sctx.Users {
				if cpmodel.SolutionBooleanValue(resp, v.X[u][si][k]) {
					assignments = append(assignments, model.Assignment{
						SlotID: slot.ID,
						SeatID: seat.ID,
						UserID: user.ID,
					})
					break
				}
			}
		}
	}
	return assignments
}

// markExtras 标记超出 base+1 的分配
func markExtras(assignments []model.Assignment, base int) {
	counts := make(map[string]int)
	safeLimit := base + 1
	for i := range assignments {
		counts[assignments[i].UserID]++
		assignments[i].IsExtra = counts[assignments[i].UserID] > safeLimit
	}
}

// buildMeta 统计元数据并补充警告
func (s *Solver) buildMeta(
	sctx *model.Context,
	resp *cmpb.CpSolverResponse,
	v *constraint.Vars,
	assignments []model.Assignment,
	warnings []string,
	relaxed bool,
) model.ScheduleMeta {
	counts := make([]int, len(sctx.Users))
	for u := range sctx.Users {
		counts[u] = int(cpmodel.SolutionIntegerValue(resp, v.Count[u]))
	}

	maxShifts, minShifts := 0, 0
	if len(counts) > 0 {
		maxShifts, minShifts = counts[0], counts[0]
		for _, c := range counts[1:] {
			if c > maxShifts {
				maxShifts = c
			}
			if c < minShifts {
				minShifts = c
			}
		}
	}

	safeLimit := sctx.Base + 1
	usersAtBasePlus2 := 0
	for _, c := range counts {
		if c > safeLimit {
			usersAtBasePlus2++
		}
	}

	violations := 0
	for key := range sctx.Unavailable {
		u, si := key[0], key[1]
		for k := range v.X[u][si] {
			if cpmodel.SolutionBooleanValue(resp, v.X[u][si][k]) {
				violations++
				break
			}
		}
	}

	consec3 := countConsecutive3DayUsers(userDayOffsets(assignments, func(slotID string) int {
		return sctx.Slots[sctx.SlotIndex[slotID]].DayOffset
	}))

	if violations > 0 {
		warnings = append(warnings, fmt.Sprintf("%d 条分配忽略了用户的不可用申请。", violations))
	}
	if usersAtBasePlus2 > 0 {
		warnings = append(warnings, fmt.Sprintf("%d 名用户被推到 base+2 的总班数。", usersAtBasePlus2))
	}
	if relaxed {
		hitRelaxed := 0
		for _, c := range counts {
			if c > sctx.Base+2 {
				hitRelaxed++
			}
		}
		if hitRelaxed > 0 {
			warnings = append(warnings, fmt.Sprintf("%d 名用户因放宽上限达到 base+3。", hitRelaxed))
		}
	}
	if consec3 > 0 {
		warnings = append(warnings, fmt.Sprintf("%d 名用户出现 3 天以上连续值班。", consec3))
	}

	return model.ScheduleMeta{
		Base:                     sctx.Base,
		MaxShifts:                maxShifts,
		MinShifts:                minShifts,
		TotalSlots:               len(sctx.Slots),
		TotalAssignments:         len(assignments),
		UsersAtBasePlus2:         usersAtBasePlus2,
		UnavailabilityViolations: violations,
		Warnings:                 warnings,
	}
}

// userDayOffsets 按用户聚合其值班日偏移
func userDayOffsets(assignments []model.Assignment, dayOf func(slotID string) int) map[string]map[int]bool {
	out := make(map[string]map[int]bool)
	for _, a := range assignments {
		if out[a.UserID] == nil {
			out[a.UserID] = make(map[int]bool)
		}
		out[a.UserID][dayOf(a.SlotID)] = true
	}
	return out
}

// countConsecutive3DayUsers 统计存在 3 天连排的用户数
func countConsecutive3DayUsers(userDays map[string]map[int]bool) int {
	count := 0
	for _, days := range userDays {
		for d := range days {
			if days[d+1] && days[d+2] {
				count++
				break
			}
		}
	}
	return count
}
