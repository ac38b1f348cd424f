package ai

// ---- Composite nodes ----

// Composite owns an ordered list of children and forwards events to all of
// them.
type Composite struct {
	Children []Node
}

// React forwards ev to every child, regardless of what their last tick
// returned.
func (c *Composite) React(ctx *AIContext, e EntityID, bb *Blackboard, ev Event) {
	for _, child := range c.Children {
		child.React(ctx, e, bb, ev)
	}
}

// Sequence succeeds only when all children succeed (logical AND). It stops at
// the first child that does not succeed and returns that child's status.
type Sequence struct {
	Composite
}

// NewSequence builds a Sequence over children.
func NewSequence(children ...Node) *Sequence {
	return &Sequence{Composite{Children: children}}
}

func (s *Sequence) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	for _, c := range s.Children {
		if res := c.Tick(ctx, e, bb); res != StatusSuccess {
			return res
		}
	}
	return StatusSuccess
}

// Selector fails only when all children fail (logical OR). It stops at the
// first child that does not fail and returns that child's status.
type Selector struct {
	Composite
}

// NewSelector builds a Selector over children.
func NewSelector(children ...Node) *Selector {
	return &Selector{Composite{Children: children}}
}

func (s *Selector) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	for _, c := range s.Children {
		if res := c.Tick(ctx, e, bb); res != StatusFailure {
			return res
		}
	}
	return StatusFailure
}

// Or ticks every child, even after one succeeds. A running child stops the
// pass and makes the node running. Otherwise it succeeds when at least one
// child succeeded.
type Or struct {
	Composite
}

// NewOr builds an Or over children.
func NewOr(children ...Node) *Or {
	return &Or{Composite{Children: children}}
}

func (o *Or) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	anySuccess := false
	for _, c := range o.Children {
		switch c.Tick(ctx, e, bb) {
		case StatusSuccess:
			anySuccess = true
		case StatusRunning:
			return StatusRunning
		}
	}
	if anySuccess {
		return StatusSuccess
	}
	return StatusFailure
}

// Parallel ticks every child on every tick. It is running while any child is
// running, otherwise it succeeds when no child failed.
type Parallel struct {
	Composite
}

// NewParallel builds a Parallel over children.
func NewParallel(children ...Node) *Parallel {
	return &Parallel{Composite{Children: children}}
}

func (p *Parallel) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	allSuccess := true
	allFinished := true
	for _, c := range p.Children {
		switch c.Tick(ctx, e, bb) {
		case StatusFailure:
			allSuccess = false
		case StatusRunning:
			allFinished = false
		}
	}
	switch {
	case !allFinished:
		return StatusRunning
	case allSuccess:
		return StatusSuccess
	default:
		return StatusFailure
	}
}

// ---- Decorator nodes ----

// Inverter negates the result of its single child. Running passes through.
type Inverter struct {
	Child Node
}

// Not wraps child in an Inverter.
func Not(child Node) *Inverter {
	return &Inverter{Child: child}
}

func (i *Inverter) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	switch i.Child.Tick(ctx, e, bb) {
	case StatusSuccess:
		return StatusFailure
	case StatusFailure:
		return StatusSuccess
	default:
		return StatusRunning
	}
}

func (i *Inverter) React(ctx *AIContext, e EntityID, bb *Blackboard, ev Event) {
	i.Child.React(ctx, e, bb, ev)
}
