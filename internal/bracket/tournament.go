package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentDraft        TournamentStatus = "draft"
	TournamentRegistration TournamentStatus = "registration"
	TournamentInProgress   TournamentStatus = "in_progress"
	TournamentCompleted    TournamentStatus = "completed"
	TournamentCancelled    TournamentStatus = "cancelled"
)

type SeedingMethod string

const (
	SeedStandard   SeedingMethod = "standard"
	SeedSequential SeedingMethod = "sequential"
	SeedRandom     SeedingMethod = "random"
)

type Tournament struct {
	ID      uuid.UUID        `db:"id"`
	OwnerID uuid.UUID        `db:"owner_id"`
	Name    string           `db:"name" json:"name"`
	Status  TournamentStatus `db:"status"`

	MaxTeams int  `db:"max_teams"`
	TeamSize *int `db:"team_size"` // nil means solo entries

	SeedingMethod SeedingMethod `db:"seeding_method"`

	HasQualifier       bool `db:"has_qualifier"`
	QualifierMatches   int  `db:"qualifier_matches"`
	QualifierMinPoints int  `db:"qualifier_min_points"`

	RequireRank bool `db:"require_rank"`

	CreatedAt time.Time `db:"created_at"`
}

func (t *Tournament) AcceptsRegistrations() bool {
	return t.Status == TournamentRegistration
}
