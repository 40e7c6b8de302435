package model

import "fmt"

// PlayerStats is a player's box-score line. All counters only grow within a session.
type PlayerStats struct {
	Points          int `json:"points"`
	Makes           int `json:"makes"`
	Attempts        int `json:"attempts"`
	ThreePtMakes    int `json:"three_pt_makes"`
	ThreePtAttempts int `json:"three_pt_attempts"`
	Rebounds        int `json:"rebounds"`
	// Assists is never incremented; no assist detection exists yet.
	Assists int `json:"assists"`
}

// CheckInvariants verifies the relations between the shooting counters.
func (s PlayerStats) CheckInvariants() error {
	switch {
	case s.Points < 0, s.Makes < 0, s.Attempts < 0, s.ThreePtMakes < 0,
		s.ThreePtAttempts < 0, s.Rebounds < 0, s.Assists < 0:
		return fmt.Errorf("%w: negative counter in %+v", ErrStatsInvariant, s)
	case s.Attempts < s.Makes:
		return fmt.Errorf("%w: attempts %d < makes %d", ErrStatsInvariant, s.Attempts, s.Makes)
	case s.ThreePtAttempts < s.ThreePtMakes:
		return fmt.Errorf("%w: three_pt_attempts %d < three_pt_makes %d", ErrStatsInvariant, s.ThreePtAttempts, s.ThreePtMakes)
	case s.Makes < s.ThreePtMakes:
		return fmt.Errorf("%w: makes %d < three_pt_makes %d", ErrStatsInvariant, s.Makes, s.ThreePtMakes)
	}
	want := TwoPoints*(s.Makes-s.ThreePtMakes) + ThreePoints*s.ThreePtMakes
	if s.Points != want {
		return fmt.Errorf("%w: points %d, want %d", ErrStatsInvariant, s.Points, want)
	}
	return nil
}

// FieldGoalPct returns makes/attempts, or 0 with no attempts.
func (s PlayerStats) FieldGoalPct() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Makes) / float64(s.Attempts)
}
