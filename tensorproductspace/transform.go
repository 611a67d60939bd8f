package tensorproductspace

import (
	"fmt"

	"github.com/notargets/gospectral/utils"
)

type step struct {
	name     string
	local    func(in, out *utils.NDArray, fast bool) error
	out      *utils.NDArray
	transfer func(a, b *utils.NDArray) error // nil after the last step
	next     *utils.NDArray
}

// Transform is a composed pipeline of local transforms with a redistribution
// between consecutive ones. Its buffers belong to the space that built it.
type Transform struct {
	name     string
	inShape  []int
	outShape []int
	steps    []step
}

// Execute runs the pipeline. out is only written after every step succeeded.
func (t *Transform) Execute(in, out *utils.NDArray, fast bool) (err error) {
	if err = utils.CheckShape(in, t.inShape, t.name+" input"); err != nil {
		return
	}
	if err = utils.CheckShape(out, t.outShape, t.name+" output"); err != nil {
		return
	}
	cur := in
	for i, st := range t.steps {
		if err = st.local(cur, st.out, fast); err != nil {
			return fmt.Errorf("%s step %d (%s): %w", t.name, i, st.name, err)
		}
		cur = st.out
		if st.transfer == nil {
			continue
		}
		if err = st.transfer(st.out, st.next); err != nil {
			return fmt.Errorf("%s redistribution after step %d: %w", t.name, i, err)
		}
		cur = st.next
	}
	out.CopyFrom(cur)
	return
}
