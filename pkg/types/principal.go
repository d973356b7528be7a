package types

import (
	"github.com/google/uuid"

	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
)

// Principal is the authenticated actor, passed explicitly into every service
// call rather than read from ambient request state.
type Principal struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	Phone  string
}

func (p Principal) IsCustomer() bool {
	return p.Role == enums.ActorRoleCustomer
}

func (p Principal) IsAgent() bool {
	return p.Role == enums.ActorRoleAgent
}
