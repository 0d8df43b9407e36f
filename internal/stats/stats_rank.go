package stats

import "math"

// ResolveRank resolves the rank for a stats row: the cached
// current_rank_id wins when it still points at a live rank, otherwise
// the band containing the XP total is looked up.
func ResolveRank(repo StatsRepository, s *UserStats) (*Rank, error) {
	xp := 0
	if s != nil {
		xp = s.XP
		if s.CurrentRankID != nil {
			rank, err := repo.GetRankByID(*s.CurrentRankID)
			if err != nil {
				return nil, err
			}
			if rank != nil {
				return rank, nil
			}
		}
	}
	return repo.GetRankForXP(xp)
}

// ComputeProgress reports where xp sits inside its rank band as a
// percentage in [0, 100]. A nil rank yields the zero progress. When the
// band is degenerate (min == max) the denominator falls back to 1.
func ComputeProgress(xp int, rank *Rank) Progress {
	if rank == nil {
		return Progress{}
	}
	span := rank.MaxXP - rank.MinXP
	if span == 0 {
		span = 1
	}
	percent := int(math.Round(float64(xp-rank.MinXP) / float64(span) * 100))
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return Progress{MinXP: rank.MinXP, MaxXP: rank.MaxXP, Percent: percent}
}
