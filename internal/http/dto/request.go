// Package dto provides data transfer objects for HTTP request and response
// handling.
package dto

import (
	validation "github.com/jellydator/validation"

	userDomain "github.com/habitvault/habitvault/internal/user/domain"
	customValidation "github.com/habitvault/habitvault/internal/validation"
)

// CreateSessionRequest carries the post-authentication identity exchanged for
// a session token. With Public set, the identity fields are ignored and a
// fresh guest account is created.
type CreateSessionRequest struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Email    string `json:"email"`
	Public   bool   `json:"public"`
}

// Validate checks if the create session request is valid.
func (r *CreateSessionRequest) Validate() error {
	if r.Public {
		return nil
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Provider, validation.Required, customValidation.NotBlank),
		validation.Field(&r.ID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Email, validation.When(r.Email != "", customValidation.Email)),
	)
}

// SaveSettingsRequest contains the per-user application settings.
type SaveSettingsRequest struct {
	Theme         string `json:"theme"`
	WeekStart     int    `json:"week_start"`
	ReminderHour  int    `json:"reminder_hour"`
	RemindersOn   bool   `json:"reminders_on"`
	HideCompleted bool   `json:"hide_completed"`
}

// Validate checks if the save settings request is valid.
func (r *SaveSettingsRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.WeekStart, validation.Min(0), validation.Max(6)),
		validation.Field(&r.ReminderHour, validation.Min(0), validation.Max(23)),
	)
}

// ToSettings maps the request to the domain settings record.
func (r *SaveSettingsRequest) ToSettings() userDomain.Settings {
	return userDomain.Settings{
		Theme:         r.Theme,
		WeekStart:     r.WeekStart,
		ReminderHour:  r.ReminderHour,
		RemindersOn:   r.RemindersOn,
		HideCompleted: r.HideCompleted,
	}
}

// HabitRequest is one habit definition inside a content update.
type HabitRequest struct {
	Name   string  `json:"name"`
	Kind   string  `json:"kind"`
	Target float64 `json:"target"`
	Unit   string  `json:"unit"`
	Color  string  `json:"color"`
}

// Validate checks if the habit definition is valid.
func (r HabitRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Kind, validation.Required, validation.In("boolean", "quantity")),
		validation.Field(&r.Target, validation.Min(0.0)),
		validation.Field(&r.Color, validation.When(r.Color != "", customValidation.HexColor)),
	)
}

// SaveContentRequest contains the user's full habit configuration.
type SaveContentRequest struct {
	Habits []HabitRequest `json:"habits"`
}

// Validate checks if the save content request is valid.
func (r *SaveContentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Habits),
	)
}

// ToContent maps the request to the domain content record.
func (r *SaveContentRequest) ToContent() userDomain.ContentConfig {
	habits := make([]userDomain.Habit, 0, len(r.Habits))
	for _, h := range r.Habits {
		habits = append(habits, userDomain.Habit{
			Name:   h.Name,
			Kind:   h.Kind,
			Target: h.Target,
			Unit:   h.Unit,
			Color:  h.Color,
		})
	}
	return userDomain.ContentConfig{Habits: habits}
}

// EntryRequest is one recorded habit value inside a daily entry update.
type EntryRequest struct {
	Habit string  `json:"habit"`
	Value float64 `json:"value"`
	Note  string  `json:"note"`
}

// Validate checks if the entry is valid.
func (r EntryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Habit, validation.Required, customValidation.NotBlank),
	)
}

// SaveEntriesRequest contains one day's entries.
type SaveEntriesRequest struct {
	Entries []EntryRequest `json:"entries"`
}

// Validate checks if the save entries request is valid.
func (r *SaveEntriesRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Entries),
	)
}

// ToEntries maps the request to domain entries.
func (r *SaveEntriesRequest) ToEntries() []userDomain.Entry {
	entries := make([]userDomain.Entry, 0, len(r.Entries))
	for _, e := range r.Entries {
		entries = append(entries, userDomain.Entry{
			Habit: e.Habit,
			Value: e.Value,
			Note:  e.Note,
		})
	}
	return entries
}

// RecoverRequest carries a recovery attempt: the raw recovery key plus the
// account email it must match.
type RecoverRequest struct {
	RecoveryKey string `json:"recovery_key"`
	Email       string `json:"email"`
}

// Validate checks if the recover request is valid.
func (r *RecoverRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RecoveryKey, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Email, validation.Required, customValidation.Email),
	)
}
