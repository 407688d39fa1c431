package bracket

import "github.com/google/uuid"

type Participant struct {
	ID           int       `json:"id"`
	TournamentID uuid.UUID `json:"tournament_id"`
	Name         string    `json:"name"`
}
