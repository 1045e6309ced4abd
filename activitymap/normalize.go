// Package activitymap turns userbase activity events into the flat rows
// stored by the directory and handed to downstream audit consumers.
package activitymap

import (
	"maps"
	"strings"
	"time"

	"github.com/goliatone/go-userbase"
)

// Metadata keys added during normalization.
const (
	MetadataKeyActorType = "actor_type"
	MetadataKeyCategory  = "category"
)

// Channel and ObjectType are stamped on every row.
const (
	Channel    = "userbase"
	ObjectType = "identity"
	// SystemActor is used when an event names neither actor nor identity.
	SystemActor = "system"
)

// Categories written under MetadataKeyCategory.
const (
	CategoryCredential    = "credential"
	CategoryProfile       = "profile"
	CategoryImpersonation = "impersonation"
	CategoryInvitation    = "invitation"
)

// Normalized is one activity row. The object is always the identity the
// event is about, so a single index serves per identity history.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Normalize flattens event. The source metadata map is never modified.
func Normalize(event userbase.ActivityEvent) Normalized {
	actor := strings.TrimSpace(event.Actor.ID)
	if actor == "" {
		actor = strings.TrimSpace(event.IdentityID)
	}
	if actor == "" {
		actor = SystemActor
	}

	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	return Normalized{
		ActorID:    actor,
		Verb:       string(event.Kind),
		ObjectType: ObjectType,
		ObjectID:   strings.TrimSpace(event.IdentityID),
		Channel:    Channel,
		Metadata:   metadata(event),
		OccurredAt: at.UTC(),
	}
}

// Category returns the group kind belongs to, or an empty string.
func Category(kind userbase.ActivityKind) string {
	k := string(kind)
	switch {
	case kind == userbase.ActivityUpdateUserInfo:
		return CategoryProfile
	case strings.HasPrefix(k, "impersonation."):
		return CategoryImpersonation
	case strings.HasPrefix(k, "invitation."):
		return CategoryInvitation
	case strings.HasSuffix(k, "_upass"), strings.HasSuffix(k, "pass"):
		return CategoryCredential
	}
	return ""
}

func metadata(event userbase.ActivityEvent) map[string]any {
	actorType := strings.TrimSpace(event.Actor.Type)
	category := Category(event.Kind)
	if len(event.Metadata) == 0 && actorType == "" && category == "" {
		return nil
	}

	out := make(map[string]any, len(event.Metadata)+2)
	maps.Copy(out, event.Metadata)
	if _, set := out[MetadataKeyActorType]; !set && actorType != "" {
		out[MetadataKeyActorType] = actorType
	}
	if category != "" {
		out[MetadataKeyCategory] = category
	}
	return out
}
