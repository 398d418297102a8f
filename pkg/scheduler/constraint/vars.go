// Package constraint 创建决策变量并向 CP-SAT 模型提交硬约束
package constraint

import (
	"github.com/google/or-tools/ortools/sat/go/cpmodel"
)

// Vars 布尔决策变量 x[u][s][k]：用户 u 坐在槽位 s 的座位 k
type Vars struct {
	X     [][][]cpmodel.BoolVar
	Count []cpmodel.IntVar // 每用户总班数
}

// NewVars 按用户数与各槽位座位数创建变量
func NewVars(b *cpmodel.Builder, numUsers int, seatCounts []int) *Vars {
	v := &Vars{
		X:     make([][][]cpmodel.BoolVar, numUsers),
		Count: make([]cpmodel.IntVar, numUsers),
	}

	totalSeats := 0
	for _, n := range seatCounts {
		totalSeats += n
	}

	for u := 0; u < numUsers; u++ {
		v.X[u] = make([][]cpmodel.BoolVar, len(seatCounts))
		for s, n := range seatCounts {
			v.X[u][s] = make([]cpmodel.BoolVar, n)
			for k := 0; k < n; k++ {
				v.X[u][s][k] = b.NewBoolVar()
			}
		}

		count := b.NewIntVar(0, int64(totalSeats))
		total := cpmodel.NewLinearExpr()
		for s := range v.X[u] {
			for k := range v.X[u][s] {
				total.Add(v.X[u][s][k])
			}
		}
		b.AddEquality(count, total)
		v.Count[u] = count
	}

	return v
}

// SlotSum 用户 u 在槽位 s 的座位占用之和（硬约束限定 ≤1）
func (v *Vars) SlotSum(u, s int) *cpmodel.LinearExpr {
	e := cpmodel.NewLinearExpr()
	for k := range v.X[u][s] {
		e.Add(v.X[u][s][k])
	}
	return e
}

// SumOver 用户 u 在一组槽位上的占用之和
func (v *Vars) SumOver(u int, slots []int) *cpmodel.LinearExpr {
	e := cpmodel.NewLinearExpr()
	for _, s := range slots {
		for k := range v.X[u][s] {
			e.Add(v.X[u][s][k])
		}
	}
	return e
}
