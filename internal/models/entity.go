package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// EntityType is the coarse kind of a canonical entity.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityTeam         EntityType = "team"
	EntityOrganization EntityType = "organization"
)

// Role tags how an entity participates in an event.
type Role string

const (
	RoleActor   Role = "actor"
	RoleSubject Role = "subject"
)

// Entity is a canonical real-world referent. Entities are created lazily by
// the resolver and never deleted or merged automatically; uncertain matches
// are created with NeedsReview set instead.
type Entity struct {
	ID          surrealmodels.RecordID `json:"id"`
	Name        string                 `json:"name"`
	NormName    string                 `json:"norm_name"`
	Type        EntityType             `json:"type"`
	NeedsReview bool                   `json:"needs_review"`
	CreatedAt   time.Time              `json:"created_at"`
}

// EntityAlias is a known alternate surface form of an entity.
type EntityAlias struct {
	ID          surrealmodels.RecordID `json:"id"`
	EntityID    surrealmodels.RecordID `json:"entity"`
	Surface     string                 `json:"surface"`
	NormSurface string                 `json:"norm_surface"`
}

// EntityMention records one surface-form occurrence of an entity in an event.
type EntityMention struct {
	ID       surrealmodels.RecordID `json:"id"`
	EntityID surrealmodels.RecordID `json:"entity"`
	EventID  surrealmodels.RecordID `json:"event"`
	Surface  string                 `json:"surface"`
	Role     Role                   `json:"role"`
}
