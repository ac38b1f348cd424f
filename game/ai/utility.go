package ai

import (
	"go.uber.org/zap"
)

// DefaultBaseChill is the hysteresis bonus given to a freshly chosen utility
// option. It decays by one per consecutive turn the option is kept.
const DefaultBaseChill = 100.0

// ScoreFunc rates a utility option from the entity's blackboard. Negative
// results count as zero.
type ScoreFunc func(bb *Blackboard) float64

// UtilityEntry is one option of a UtilitySelector.
type UtilityEntry struct {
	Node  Node
	Score ScoreFunc
	Label string
}

func (e *UtilityEntry) score(bb *Blackboard) float64 {
	if e.Score == nil {
		return 0
	}
	return e.Score(bb)
}

// UtilitySelector picks one option per tick by weighted random sampling over
// the option scores. An option that fails is excluded and the draw repeats
// among the rest; the first non-failing option ends the tick.
//
// The option chosen last gets a chill bonus of max(0, BaseChill-stale), where
// stale counts the consecutive turns it was kept. The bonus keeps the selector
// from flickering between options without locking it into one forever.
type UtilitySelector struct {
	Entries   []UtilityEntry
	BaseChill float64

	last  int // index+1 of the last chosen entry, 0 for none
	stale int
}

// NewUtilitySelector builds a selector with DefaultBaseChill.
func NewUtilitySelector(entries ...UtilityEntry) *UtilitySelector {
	return &UtilitySelector{Entries: entries, BaseChill: DefaultBaseChill}
}

// LastChoice returns the index of the entry chosen on the latest successful
// or running tick.
func (u *UtilitySelector) LastChoice() (int, bool) {
	if u.last == 0 {
		return 0, false
	}
	return u.last - 1, true
}

// Stale returns how many consecutive turns the last choice has been repeated.
func (u *UtilitySelector) Stale() int { return u.stale }

// Chill returns the bonus currently granted to the last choice.
func (u *UtilitySelector) Chill() float64 {
	return max(0, u.BaseChill-float64(u.stale))
}

func (u *UtilitySelector) Tick(ctx *AIContext, e EntityID, bb *Blackboard) Status {
	remaining := make([]int, len(u.Entries))
	for i := range remaining {
		remaining[i] = i
	}
	scores := make([]float64, 0, len(remaining))

	for len(remaining) > 0 {
		chill := u.Chill()
		scores = scores[:0]
		for _, idx := range remaining {
			s := u.Entries[idx].score(bb)
			if u.last == idx+1 {
				s += chill
			}
			if !(s > 0) {
				s = 0
			}
			scores = append(scores, s)
		}

		pick := WeightedIndex(ctx.rand(), scores)
		idx := remaining[pick]
		u.logScores(ctx, e, remaining, scores, idx)

		res := u.Entries[idx].Node.Tick(ctx, e, bb)
		if res != StatusFailure {
			if u.last != idx+1 {
				u.stale = 0
				u.last = idx + 1
			} else {
				u.stale++
			}
			return res
		}
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}
	u.last = 0
	return StatusFailure
}

func (u *UtilitySelector) logScores(ctx *AIContext, e EntityID, remaining []int, scores []float64, chosen int) {
	log := ctx.log()
	if ce := log.Check(zap.DebugLevel, "utility scores"); ce != nil {
		fields := make([]zap.Field, 0, len(remaining)+3)
		fields = append(fields, zap.Uint64("entity", uint64(e)), zap.String("chosen", u.Entries[chosen].Label))
		for i, idx := range remaining {
			fields = append(fields, zap.Float64(u.Entries[idx].Label, scores[i]))
		}
		if u.last != 0 {
			fields = append(fields, zap.String("last", u.Entries[u.last-1].Label))
		}
		ce.Write(fields...)
	}
}

func (u *UtilitySelector) React(ctx *AIContext, e EntityID, bb *Blackboard, ev Event) {
	for i := range u.Entries {
		u.Entries[i].Node.React(ctx, e, bb, ev)
	}
}
