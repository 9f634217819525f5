package shared

import "github.com/google/uuid"

// Actor is the caller of a service operation.
type Actor struct {
	VisitorID uuid.UUID
	IsAdmin   bool
}

// SystemActor is used by background jobs. It has admin rights and no
// visitor id.
var SystemActor = Actor{IsAdmin: true}

// CanAccess reports whether the actor may act on a resource owned by
// ownerID.
func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	return a.IsAdmin || a.VisitorID == ownerID
}
