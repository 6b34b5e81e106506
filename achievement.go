package main

// AchievementDef describes an unlockable. Reportable ones may be claimed
// by the client (still validated against the catalog); the rest are only
// granted by the simulation itself.
type AchievementDef struct {
	ID         string
	Name       string
	Points     int
	Reportable bool
}

var AchievementCatalog = []AchievementDef{
	{ID: "first_blood", Name: "First Blood", Points: 20},
	{ID: "hat_trick", Name: "Hat Trick", Points: 40},
	{ID: "ace", Name: "Ace", Points: 80},
	{ID: "untouchable", Name: "Untouchable", Points: 200},
	{ID: "low_pass", Name: "Low Pass", Points: 10, Reportable: true},
	{ID: "sound_barrier", Name: "Sound Barrier", Points: 10, Reportable: true},
	{ID: "flare_save", Name: "Close Call", Points: 15, Reportable: true},
}

// streak thresholds that unlock an achievement the moment they are crossed
var streakAchievements = []struct {
	Streak int
	ID     string
}{
	{1, "first_blood"},
	{3, "hat_trick"},
	{5, "ace"},
	{10, "untouchable"},
}

var achievementIndex = func() map[string]AchievementDef {
	m := make(map[string]AchievementDef, len(AchievementCatalog))
	for _, a := range AchievementCatalog {
		m[a.ID] = a
	}
	return m
}()

func AchievementByID(id string) (AchievementDef, bool) {
	a, ok := achievementIndex[id]
	return a, ok
}

// StreakAchievements returns the achievements unlocked by reaching
// exactly this kill streak.
func StreakAchievements(streak int) []string {
	var ids []string
	for _, s := range streakAchievements {
		if s.Streak == streak {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// MissionDef is a repeatable in-session objective. Progress is reported
// by the client one step at a time and completion is scored once.
type MissionDef struct {
	ID     string
	Name   string
	Target int
	Points int
}

var MissionCatalog = []MissionDef{
	{ID: "recon_photos", Name: "Recon Run", Target: 3, Points: 60},
	{ID: "escort_convoy", Name: "Convoy Escort", Target: 1, Points: 100},
	{ID: "balloon_hunt", Name: "Balloon Hunt", Target: 5, Points: 50},
	{ID: "canyon_gates", Name: "Canyon Gates", Target: 8, Points: 80},
}

var missionIndex = func() map[string]MissionDef {
	m := make(map[string]MissionDef, len(MissionCatalog))
	for _, d := range MissionCatalog {
		m[d.ID] = d
	}
	return m
}()

func MissionByID(id string) (MissionDef, bool) {
	d, ok := missionIndex[id]
	return d, ok
}
