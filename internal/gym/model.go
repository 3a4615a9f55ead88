package gym

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleMember  Role = "member"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

type Gym struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  string    `db:"location" json:"location"`
	Timezone  string    `db:"timezone" json:"timezone"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Member is a user's membership row joined with the user's profile.
type Member struct {
	GymID       int       `db:"gym_id" json:"gym_id"`
	UserID      int       `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	Role        Role      `db:"role" json:"role"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CheckInCode uuid.UUID `db:"check_in_code" json:"-"`
}

func (m *Member) IsTrainer() bool {
	return m.Role == RoleTrainer
}
