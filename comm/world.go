package comm

import (
	"fmt"
	"runtime/debug"
	"sync"

	jww "github.com/spf13/jwalterweatherman"
	"go.uber.org/multierr"
)

const mailBoxDepth = 16

type message struct {
	ctx     string
	payload []complex128
}

// World is a set of NP in-process ranks joined by one mailbox channel per
// (source, target) pair. Messages between a pair arrive in send order.
type World struct {
	NP        int
	mailBoxes [][]chan message // [source][target]
	abort     chan struct{}
	abortOnce sync.Once
}

func NewWorld(NP int) (w *World) {
	if NP < 1 {
		panic(fmt.Errorf("world size must be positive, have %d", NP))
	}
	w = &World{
		NP:        NP,
		mailBoxes: make([][]chan message, NP),
		abort:     make(chan struct{}),
	}
	for src := 0; src < NP; src++ {
		w.mailBoxes[src] = make([]chan message, NP)
		for tgt := 0; tgt < NP; tgt++ {
			w.mailBoxes[src][tgt] = make(chan message, mailBoxDepth)
		}
	}
	return
}

// Comm returns the world group as seen by rank.
func (w *World) Comm(rank int) Group {
	members := make([]int, w.NP)
	for i := range members {
		members[i] = i
	}
	return &group{
		world:   w,
		ctx:     "world",
		rank:    rank,
		members: members,
	}
}

// Abort releases every rank blocked in a collective with ErrAborted.
func (w *World) Abort() {
	w.abortOnce.Do(func() { close(w.abort) })
}

func (w *World) post(src, tgt int, msg message) (err error) {
	select {
	case w.mailBoxes[src][tgt] <- msg:
	case <-w.abort:
		err = ErrAborted
	}
	return
}

func (w *World) receive(src, tgt int, ctx string) (payload []complex128, err error) {
	select {
	case msg := <-w.mailBoxes[src][tgt]:
		if msg.ctx != ctx {
			err = fmt.Errorf("%w: rank %d expected %q from rank %d, received %q",
				ErrCollectiveMismatch, tgt, ctx, src, msg.ctx)
			return
		}
		payload = msg.payload
	case <-w.abort:
		err = ErrAborted
	}
	return
}

// Run executes fn on NP goroutine ranks of a fresh World and waits for all of
// them. The first failing rank aborts the world; the errors of all ranks are
// combined.
func Run(NP int, fn func(g Group) error) (err error) {
	var (
		w    = NewWorld(NP)
		wg   sync.WaitGroup
		errs = make([]error, NP)
	)
	for n := 0; n < NP; n++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					jww.ERROR.Printf("rank %d panic: %v\n%s", rank, p, debug.Stack())
					errs[rank] = fmt.Errorf("rank %d: panic: %v", rank, p)
					w.Abort()
				}
			}()
			if rerr := fn(w.Comm(rank)); rerr != nil {
				errs[rank] = fmt.Errorf("rank %d: %w", rank, rerr)
				w.Abort()
			}
		}(n)
	}
	wg.Wait()
	err = multierr.Combine(errs...)
	return
}
