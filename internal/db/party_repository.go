package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/orgdesk/orgdesk/internal/models"
)

// Party repository errors.
var (
	ErrClubNotFound    = errors.New("club not found")
	ErrProfileNotFound = errors.New("profile not found")
)

// PartyRepository handles the club, profile, and officer lookup records the
// directory resolves display identities against.
type PartyRepository struct {
	db *DB
}

// NewPartyRepository creates a PartyRepository.
func NewPartyRepository(db *DB) *PartyRepository {
	return &PartyRepository{db: db}
}

// InsertClub creates a club record, assigning an ID when missing.
func (r *PartyRepository) InsertClub(ctx context.Context, club *models.Club) error {
	if club.ID == "" {
		club.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clubs (id, org_id, name, avatar_url, primary_user_id)
		VALUES (?, ?, ?, ?, ?)
	`, club.ID, club.OrgID, club.Name, club.AvatarURL, club.PrimaryUserID)
	if err != nil {
		return fmt.Errorf("insert club: %w", err)
	}
	return nil
}

// InsertProfile creates a profile record.
func (r *PartyRepository) InsertProfile(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, org_id, display_name, avatar_url)
		VALUES (?, ?, ?, ?)
	`, profile.ID, profile.OrgID, profile.DisplayName, profile.AvatarURL)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// InsertOfficer creates an officer record.
func (r *PartyRepository) InsertOfficer(ctx context.Context, officer *models.Officer) error {
	if officer.ID == "" {
		officer.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO officers (id, club_id, user_id, position, rank)
		VALUES (?, ?, ?, ?, ?)
	`, officer.ID, officer.ClubID, officer.UserID, officer.Position, officer.Rank)
	if err != nil {
		return fmt.Errorf("insert officer: %w", err)
	}
	return nil
}

// ClubByID retrieves a single club.
func (r *PartyRepository) ClubByID(ctx context.Context, id string) (*models.Club, error) {
	clubs, err := r.ClubsByID(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	club, ok := clubs[id]
	if !ok {
		return nil, ErrClubNotFound
	}
	return &club, nil
}

// ClubsByID batch-fetches clubs keyed by id.
func (r *PartyRepository) ClubsByID(ctx context.Context, ids []string) (map[string]models.Club, error) {
	if len(ids) == 0 {
		return map[string]models.Club{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, org_id, name, avatar_url, primary_user_id
		FROM clubs WHERE id IN (%s)
	`, placeholders(len(ids)))

	rows, err := r.db.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query clubs: %w", err)
	}
	defer rows.Close()

	clubs := make(map[string]models.Club, len(ids))
	for rows.Next() {
		var club models.Club
		if err := rows.Scan(&club.ID, &club.OrgID, &club.Name, &club.AvatarURL, &club.PrimaryUserID); err != nil {
			return nil, fmt.Errorf("scan club: %w", err)
		}
		clubs[club.ID] = club
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clubs: %w", err)
	}
	return clubs, nil
}

// ProfileByID retrieves a single profile.
func (r *PartyRepository) ProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	profiles, err := r.ProfilesByID(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	profile, ok := profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &profile, nil
}

// ProfilesByID batch-fetches profiles keyed by user id.
func (r *PartyRepository) ProfilesByID(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	if len(ids) == 0 {
		return map[string]models.Profile{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, org_id, display_name, avatar_url
		FROM profiles WHERE id IN (%s)
	`, placeholders(len(ids)))

	rows, err := r.db.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	profiles := make(map[string]models.Profile, len(ids))
	for rows.Next() {
		var profile models.Profile
		if err := rows.Scan(&profile.ID, &profile.OrgID, &profile.DisplayName, &profile.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles[profile.ID] = profile
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

// ClubOfficers lists a club's officers ordered by rank, then id.
func (r *PartyRepository) ClubOfficers(ctx context.Context, clubID string) ([]models.Officer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, club_id, user_id, position, rank
		FROM officers WHERE club_id = ?
		ORDER BY rank, id
	`, clubID)
	if err != nil {
		return nil, fmt.Errorf("query officers: %w", err)
	}
	defer rows.Close()

	var officers []models.Officer
	for rows.Next() {
		var officer models.Officer
		if err := rows.Scan(&officer.ID, &officer.ClubID, &officer.UserID, &officer.Position, &officer.Rank); err != nil {
			return nil, fmt.Errorf("scan officer: %w", err)
		}
		officers = append(officers, officer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate officers: %w", err)
	}
	return officers, nil
}
