package models

// Level thresholds. Derived purely from the displayed (floored) point
// total; never stored.
type Level struct {
	Rank      int    `json:"rank"`
	Name      string `json:"name"`
	MinPoints int    `json:"min_points"`
}

var Levels = []Level{
	{Rank: 1, Name: "Newcomer", MinPoints: 0},
	{Rank: 2, Name: "Regular", MinPoints: 50},
	{Rank: 3, Name: "Insider", MinPoints: 150},
	{Rank: 4, Name: "Gossip", MinPoints: 400},
	{Rank: 5, Name: "Oracle", MinPoints: 1000},
	{Rank: 6, Name: "Legend", MinPoints: 2500},
}

// LevelForPoints maps a point total to its level. Negative totals clamp to
// the first level.
func LevelForPoints(points int) Level {
	lvl := Levels[0]
	for _, l := range Levels {
		if points >= l.MinPoints {
			lvl = l
		}
	}
	return lvl
}
