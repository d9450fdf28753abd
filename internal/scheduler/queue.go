package scheduler

import (
	"sort"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

type item struct {
	job   models.ScheduledJob
	index int
}

// jobQueue implements heap.Interface ordered by FireAt, then CreatedAt.
type jobQueue []*item

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	a, b := q[i].job, q[j].job
	if a.FireAt.Equal(b.FireAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.FireAt.Before(b.FireAt)
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x any) {
	it := x.(*item)
	it.index = len(*q)
	*q = append(*q, it)
}

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*q = old[:n-1]
	return it
}

// sorted returns the items in heap order without mutating index fields.
func (q jobQueue) sorted() []*item {
	sort.SliceStable(q, func(i, j int) bool {
		a, b := q[i].job, q[j].job
		if a.FireAt.Equal(b.FireAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.FireAt.Before(b.FireAt)
	})
	return q
}
