package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"

	cmpb "github.com/google/or-tools/ortools/sat/proto/cpmodel"

	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/logger"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/constraint"
	"github.com/zhiban/zhiban/pkg/scheduler/penalty"
)

// SeniorSolver 总值班模式排班求解器
type SeniorSolver struct {
	opts    Options
	weights penalty.Weights
	log     *logger.SolverLogger
}

// NewSenior 创建总值班模式求解器
func NewSenior(opts Options, weights penalty.Weights) *SeniorSolver {
	return &SeniorSolver{opts: opts, weights: weights, log: logger.NewSolverLogger("senior")}
}

// Solve 求解一次总值班排班请求
func (s *SeniorSolver) Solve(ctx context.Context, req *model.SeniorScheduleRequest) (*model.ScheduleResponse, error) {
	start := time.Now()

	sctx, err := model.NewSeniorContext(req)
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
	assignSeniorRoles(sctx, assignments)
	markExtras(assignments, sctx.Base)

	meta := s.buildMeta(sctx, resp, v, assignments, warnings, relaxed)
	meta.SolverStatus = status.String()
	meta.SolveTimeMs = float64(time.Since(start).Microseconds()) / 1000.0

	s.log.SolveComplete(sctx.Period.ID, meta.SolverStatus, elapsed, meta.UnavailabilityViolations)

	return &model.ScheduleResponse{Assignments: assignments, Meta: meta}, nil
}

func (s *SeniorSolver) solveOnce(ctx context.Context, sctx *model.SeniorContext, maxShifts int64) (*cmpb.CpSolverResponse, *constraint.Vars, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeInternal, "排班请求已取消")
	}

	b := cpmodel.NewCpModelBuilder()

	seatCounts := make([]int, len(sctx.Slots))
	for i, slot := range sctx.Slots {
		seatCounts[i] = len(slot.Seats)
	}
	v := constraint.NewVars(b, len(sctx.Users), seatCounts)

	constraint.NewSeniorHardBuilder(b, sctx, v).AddAll(maxShifts)

	pb := penalty.NewSeniorBuilder(b, sctx, v, s.weights)
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

func (s *SeniorSolver) decode(sctx *model.SeniorContext, resp *cmpb.CpSolverResponse, v *constraint.Vars) []model.Assignment {
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

func (s *SeniorSolver) buildMeta(
	sctx *model.SeniorContext,
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
		warnings = append(warnings, fmt.Sprintf("%d 名用户被推到 base+2 的总段数。", usersAtBasePlus2))
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
