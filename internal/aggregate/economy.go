package aggregate

import "demostats/internal/event"

// EconomyResult is a participant's match totals with buy classification.
type EconomyResult struct {
	Kills             int
	Assists           int
	Deaths            int
	Objectives        int
	SaveKills         int
	LightBuyKills     int
	WeightedEquipment int
}

// AvgEquipmentPerKill is the kill-weighted mean equipment value, floored.
func (r EconomyResult) AvgEquipmentPerKill() int {
	if r.Kills == 0 {
		return 0
	}
	return r.WeightedEquipment / r.Kills
}

// ClassifyEconomy folds one participant's per-round counters over the first
// roundsPlayed rounds. Kills on the first and last round of each half are
// never classified as save or light-buy kills but still count towards the
// weighted equipment sum.
func ClassifyEconomy(p Policy, roundsPlayed int, rounds []event.RoundCounters) EconomyResult {
	var res EconomyResult
	n := min(roundsPlayed, len(rounds))
	for r := 0; r < n; r++ {
		c := rounds[r]
		res.Kills += c.Kills
		res.Assists += c.Assists
		res.Deaths += c.Deaths
		res.Objectives += c.Objectives

		if c.Kills <= 0 {
			continue
		}
		res.WeightedEquipment += c.EquipmentValue * c.Kills
		if p.IsSentinelRound(r) {
			continue
		}
		if c.EquipmentValue < p.SaveThreshold {
			res.SaveKills += c.Kills
		}
		if c.EquipmentValue < p.LightBuyThreshold {
			res.LightBuyKills += c.Kills
		}
	}
	return res
}
