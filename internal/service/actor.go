package service

import (
	"shrimp-trace/internal/model"

	"github.com/google/uuid"
)

// Actor is the authenticated account a service call runs on behalf of.
type Actor struct {
	ID   uuid.UUID
	Kind model.AccountKind
	Name string
}

func (a Actor) IsOperator() bool {
	return a.Kind == model.AccountOperator
}

// auditID is what lands in created_by / updated_by.
func (a Actor) auditID() string {
	return a.ID.String()
}
