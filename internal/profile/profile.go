// Package profile is the identity collaborator surface: student and admin
// profiles, lookup by QR token, and QR image rendering.
package profile

import (
	"context"

	qrcode "github.com/skip2/go-qrcode"
)

// Role of an authenticated actor.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Profile identifies an actor. QRCode is a stable opaque token generated once
// at profile creation and never reused; scans compare it by exact match.
type Profile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	SRN         string `json:"srn,omitempty"`
	CollegeName string `json:"college_name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	QRCode      string `json:"qr_code,omitempty"`
}

// Store is the profile lookup contract. Point lookups return (nil, nil) when
// no profile matches.
type Store interface {
	Insert(ctx context.Context, p Profile) (Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
	ByQRCode(ctx context.Context, token string) (*Profile, error)
}

// QRImage renders a profile's QR token as a PNG.
func QRImage(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(token, qrcode.Medium, size)
}
