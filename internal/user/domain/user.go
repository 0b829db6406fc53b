// Package domain defines the user-facing records that travel through the
// envelope store: identity, settings, habit configuration, and daily entries.
// Everything here is a payload; encryption and scoping happen in the layers
// beneath.
package domain

// User is the post-auth identity handed in by the session layer. For
// authenticated users Provider and ID come from the OAuth provider; public
// (guest) users carry a generated ID and no email.
type User struct {
	Provider string
	ID       string
	Email    string
	Public   bool
}

// NewPublicUser builds a guest identity. Guest data is ephemeral: every write
// in a guest scope carries a TTL.
func NewPublicUser(id string) User {
	return User{Provider: "public", ID: id, Public: true}
}

// Settings is the per-user application configuration, encrypted under the
// settings DEK.
type Settings struct {
	Theme         string `cbor:"1,keyasint" json:"theme"`
	WeekStart     int    `cbor:"2,keyasint" json:"week_start"`
	ReminderHour  int    `cbor:"3,keyasint" json:"reminder_hour"`
	RemindersOn   bool   `cbor:"4,keyasint" json:"reminders_on"`
	HideCompleted bool   `cbor:"5,keyasint" json:"hide_completed"`
}

// Habit is one tracked habit definition.
type Habit struct {
	Name   string  `cbor:"1,keyasint" json:"name"`
	Kind   string  `cbor:"2,keyasint" json:"kind"`
	Target float64 `cbor:"3,keyasint" json:"target"`
	Unit   string  `cbor:"4,keyasint" json:"unit"`
	Color  string  `cbor:"5,keyasint" json:"color"`
}

// ContentConfig is the user's habit configuration, encrypted under the
// user's uuDEK.
type ContentConfig struct {
	Habits []Habit `cbor:"1,keyasint" json:"habits"`
}

// Entry is one recorded value for a habit on a given day.
type Entry struct {
	Habit string  `cbor:"1,keyasint" json:"habit"`
	Value float64 `cbor:"2,keyasint" json:"value"`
	Note  string  `cbor:"3,keyasint" json:"note,omitempty"`
}

// ExportBundle is the full readable copy of a user's data, produced by export
// and by account recovery.
type ExportBundle struct {
	Settings Settings           `json:"settings"`
	Content  ContentConfig      `json:"content"`
	Entries  map[string][]Entry `json:"entries"`
}
