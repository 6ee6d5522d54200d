package postgres

import (
	"time"

	"github.com/lib/pq"
)

type preferenceTableModel struct {
	ID               int64          `db:"id"`
	PublicID         string         `db:"public_id"`
	UserID           string         `db:"user_id"`
	Languages        pq.StringArray `db:"languages"`
	Skills           string         `db:"skills"`
	IssueInterests   pq.StringArray `db:"issue_interests"`
	ProjectInterests pq.StringArray `db:"project_interests"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	DeletedAt        *time.Time     `db:"deleted_at"`
}

type preferenceInsertModel struct {
	PublicID         string         `db:"public_id"`
	UserID           string         `db:"user_id"`
	Languages        pq.StringArray `db:"languages"`
	Skills           string         `db:"skills"`
	IssueInterests   pq.StringArray `db:"issue_interests"`
	ProjectInterests pq.StringArray `db:"project_interests"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// skillDocument is the JSONB element shape for one stored skill.
type skillDocument struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Familiarity string `json:"familiarity"`
}
