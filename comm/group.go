package comm

import (
	"fmt"
	"sort"

	jww "github.com/spf13/jwalterweatherman"
)

// Group is an ordered set of ranks that execute collectives in lock step.
// Every member must call each collective, in the same order, or the group
// deadlocks or reports ErrCollectiveMismatch.
type Group interface {
	Rank() int
	Size() int
	// AllToAllV sends send[r] to rank r and returns the block received from
	// every rank, indexed by source.
	AllToAllV(send [][]complex128) (recv [][]complex128, err error)
	// AllReduceSum replaces buf with the elementwise sum over all ranks. The
	// summation order is the rank order, so every rank gets identical bits.
	AllReduceSum(buf []complex128) error
	AllGather(local []complex128) (all [][]complex128, err error)
	Barrier() error
	// Split partitions the group by color; members are ordered by key, then by
	// rank in the parent.
	Split(color, key int) (Group, error)
	Free() error
}

type group struct {
	world   *World
	ctx     string
	rank    int
	members []int // world rank of each group rank
	seq     int   // collective counter, identical on every member
	splits  int
	freed   bool
}

func (g *group) Rank() int { return g.rank }
func (g *group) Size() int { return len(g.members) }

func (g *group) String() string {
	return fmt.Sprintf("%s[%d/%d]", g.ctx, g.rank, len(g.members))
}

func (g *group) nextCtx(op string) string {
	g.seq++
	return fmt.Sprintf("%s#%d:%s", g.ctx, g.seq, op)
}

func (g *group) AllToAllV(send [][]complex128) (recv [][]complex128, err error) {
	if g.freed {
		err = ErrFreed
		return
	}
	if len(send) != len(g.members) {
		err = fmt.Errorf("AllToAllV on %v: %d send blocks for %d ranks", g, len(send), len(g.members))
		return
	}
	recv, err = g.exchange(g.nextCtx("alltoallv"), func(tgt int) []complex128 { return send[tgt] })
	return
}

func (g *group) AllGather(local []complex128) (all [][]complex128, err error) {
	if g.freed {
		err = ErrFreed
		return
	}
	all, err = g.exchange(g.nextCtx("allgather"), func(int) []complex128 { return local })
	return
}

func (g *group) AllReduceSum(buf []complex128) (err error) {
	var all [][]complex128
	if g.freed {
		return ErrFreed
	}
	if all, err = g.exchange(g.nextCtx("allreduce"), func(int) []complex128 { return buf }); err != nil {
		return
	}
	for r, part := range all {
		if len(part) != len(buf) {
			return fmt.Errorf("%w: AllReduceSum on %v: rank %d contributed %d values, expected %d",
				ErrCollectiveMismatch, g, r, len(part), len(buf))
		}
	}
	sum := make([]complex128, len(buf))
	for _, part := range all {
		for i, val := range part {
			sum[i] += val
		}
	}
	copy(buf, sum)
	return
}

func (g *group) Barrier() (err error) {
	if g.freed {
		return ErrFreed
	}
	_, err = g.exchange(g.nextCtx("barrier"), func(int) []complex128 { return nil })
	return
}

// exchange posts one block to every member, then receives one from every member.
func (g *group) exchange(ctx string, block func(tgt int) []complex128) (recv [][]complex128, err error) {
	var (
		me = g.members[g.rank]
	)
	recv = make([][]complex128, len(g.members))
	for r, tgt := range g.members {
		if r == g.rank {
			continue
		}
		buf := block(r)
		payload := make([]complex128, len(buf))
		copy(payload, buf)
		if err = g.world.post(me, tgt, message{ctx: ctx, payload: payload}); err != nil {
			return nil, err
		}
	}
	{
		buf := block(g.rank)
		recv[g.rank] = make([]complex128, len(buf))
		copy(recv[g.rank], buf)
	}
	for r, src := range g.members {
		if r == g.rank {
			continue
		}
		if recv[r], err = g.world.receive(src, me, ctx); err != nil {
			return nil, err
		}
	}
	return
}

func (g *group) Split(color, key int) (sub Group, err error) {
	var (
		all [][]complex128
	)
	if g.freed {
		err = ErrFreed
		return
	}
	if all, err = g.exchange(g.nextCtx("split"), func(int) []complex128 {
		return []complex128{complex(float64(color), float64(key))}
	}); err != nil {
		return
	}
	type entry struct{ key, parent int }
	var (
		entries []entry
	)
	for r, val := range all {
		if int(real(val[0])) == color {
			entries = append(entries, entry{int(imag(val[0])), r})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].key != entries[j].key {
			return entries[i].key < entries[j].key
		}
		return entries[i].parent < entries[j].parent
	})
	g.splits++
	ng := &group{
		world:   g.world,
		ctx:     fmt.Sprintf("%s/%d:%d", g.ctx, g.splits, color),
		members: make([]int, len(entries)),
	}
	for i, e := range entries {
		ng.members[i] = g.members[e.parent]
		if e.parent == g.rank {
			ng.rank = i
		}
	}
	jww.DEBUG.Printf("split %v -> %v members %v\n", g, ng, ng.members)
	sub = ng
	return
}

func (g *group) Free() error {
	if g.freed {
		return ErrFreed
	}
	g.freed = true
	return nil
}
