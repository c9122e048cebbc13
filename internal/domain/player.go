package domain

// Player represents a member working on a challenge. Players are never
// persisted on their own; they live nested inside a Challenge.
type Player struct {
	UserID string `json:"user_id"`
}
