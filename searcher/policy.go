package searcher

import "math"

// uct scores the children of one parent. The exploration part is
// c*sqrt(ln(N)/n), computed as sqrt(c^2*ln(N)/n) with c^2*ln(N) fixed per parent.
type uct struct {
	explore float64
}

func newUCT(c float64, parentVisits int) uct {
	if parentVisits <= 0 {
		panic("parent must have been visited")
	}
	return uct{explore: c * c * math.Log(float64(parentVisits))}
}

// score is the mean reward q/n plus the exploration bonus. n must be positive.
func (u uct) score(rewards float64, visits int) float64 {
	if visits <= 0 {
		panic("child must have been visited")
	}
	n := float64(visits)
	return rewards/n + math.Sqrt(u.explore/n)
}
