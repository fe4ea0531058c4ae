package profile

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// SQLStore persists profiles in Postgres.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store backed by an open Postgres connection.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Insert writes a new profile, minting the QR token when absent.
func (s *SQLStore) Insert(ctx context.Context, p Profile) (Profile, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.QRCode == "" {
		p.QRCode = uuid.NewString()
	}
	if p.Role == "" {
		p.Role = RoleStudent
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, email, role, srn, college_name, phone, qr_code)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, p.ID, p.Name, p.Email, p.Role, p.SRN, p.CollegeName, p.Phone, p.QRCode)
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Get returns a profile by id, or (nil, nil) when absent.
func (s *SQLStore) Get(ctx context.Context, id string) (*Profile, error) {
	return s.one(ctx, `
		SELECT id, name, email, role, srn, college_name, phone, qr_code
		FROM profiles WHERE id = $1
	`, id)
}

// ByQRCode returns the profile owning a QR token, or (nil, nil) when no
// profile matches.
func (s *SQLStore) ByQRCode(ctx context.Context, token string) (*Profile, error) {
	return s.one(ctx, `
		SELECT id, name, email, role, srn, college_name, phone, qr_code
		FROM profiles WHERE qr_code = $1
	`, token)
}

func (s *SQLStore) one(ctx context.Context, query, arg string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx, query, arg)
	var p Profile
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Role, &p.SRN, &p.CollegeName, &p.Phone, &p.QRCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
