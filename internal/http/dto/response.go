package dto

import (
	"github.com/habitvault/habitvault/internal/crypto/usecase"
	userDomain "github.com/habitvault/habitvault/internal/user/domain"
)

// UserResponse is the identity echoed back to the client.
type UserResponse struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Public   bool   `json:"public"`
}

// MapUserToResponse maps a domain user to its response form.
func MapUserToResponse(user userDomain.User) UserResponse {
	return UserResponse{
		Provider: user.Provider,
		ID:       user.ID,
		Email:    user.Email,
		Public:   user.Public,
	}
}

// SessionResponse is returned when a session is created.
type SessionResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// RecoveryKeyResponse carries a freshly minted recovery key. This is the only
// time the key is ever transmitted.
type RecoveryKeyResponse struct {
	RecoveryKey string `json:"recovery_key"`
}

// RotationReportResponse summarizes a committed rotation. The new key material
// itself never travels over HTTP.
type RotationReportResponse struct {
	Target      string   `json:"target"`
	State       string   `json:"state"`
	ReEncrypted int      `json:"re_encrypted"`
	Skipped     []string `json:"skipped,omitempty"`
	Deleted     int      `json:"deleted"`
}

// MapReportToResponse maps a rotation report to its response form.
func MapReportToResponse(report *usecase.Report) RotationReportResponse {
	return RotationReportResponse{
		Target:      string(report.Target),
		State:       string(report.State),
		ReEncrypted: report.ReEncrypted,
		Skipped:     report.Skipped,
		Deleted:     report.Deleted,
	}
}
