package domain

import "time"

type ContributionType string

const (
	ContributionUpload       ContributionType = "CONTENT_UPLOAD"
	ContributionVerification ContributionType = "CONTENT_VERIFICATION"
	ContributionTranslation  ContributionType = "CONTENT_TRANSLATION"
	ContributionCuration     ContributionType = "CONTENT_CURATION"
)

// RewardRates maps a contribution type to its base point value. Unknown types
// are rejected, never defaulted.
var RewardRates = map[ContributionType]int64{
	ContributionUpload:       10,
	ContributionVerification: 5,
	ContributionTranslation:  15,
	ContributionCuration:     20,
}

// MaxQualityMultiplier caps how far quality can scale a base rate.
const MaxQualityMultiplier = 3.0

// RewardRecord is an append-only reward event. A contributor's balance is the
// sum of their records, never a mutable counter.
type RewardRecord struct {
	ID          string
	Contributor string
	Points      int64
	Reason      ContributionType
	Metadata    map[string]any
	LedgerTxRef string
	Mode        Mode
	Timestamp   time.Time
}

type RewardLevel struct {
	Name      string
	MinPoints int64
}

// RewardLevels is ordered ascending by MinPoints and total over the
// non-negative integers: every balance maps to exactly one level.
var RewardLevels = []RewardLevel{
	{Name: "Apprentice", MinPoints: 0},
	{Name: "Storyteller", MinPoints: 100},
	{Name: "Griot", MinPoints: 500},
	{Name: "Guardian", MinPoints: 1000},
	{Name: "Elder", MinPoints: 2500},
}

type LevelStanding struct {
	Current         string
	Next            string
	Points          int64
	ProgressPercent float64
}

// LevelOf derives a contributor's standing from a point balance. Progress is
// clamped to 100 at the top level, which has no successor.
func LevelOf(points int64) LevelStanding {
	if points < 0 {
		points = 0
	}
	idx := 0
	for i, level := range RewardLevels {
		if points >= level.MinPoints {
			idx = i
		}
	}
	standing := LevelStanding{
		Current: RewardLevels[idx].Name,
		Points:  points,
	}
	if idx == len(RewardLevels)-1 {
		standing.ProgressPercent = 100
		return standing
	}
	next := RewardLevels[idx+1]
	standing.Next = next.Name
	span := next.MinPoints - RewardLevels[idx].MinPoints
	standing.ProgressPercent = float64(points-RewardLevels[idx].MinPoints) / float64(span) * 100
	return standing
}
