package rsos

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/users"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/database"
)

// CreateInput holds a new RSO and the user creating it.
type CreateInput struct {
	Name         string
	Description  string
	Category     string
	UniversityID int64
	UserID       int64
}

// CreateResult is the outcome of Manager.Create.
type CreateResult struct {
	RSO         *models.RSO
	Role        models.Role
	Memberships []int64
}

// Manager maintains users' RSO membership sets. Every operation runs in one
// transaction and returns the resulting set in ascending order.
type Manager struct {
	pool   database.Pool
	logger *zap.Logger
}

// NewManager creates a membership manager.
func NewManager(pool database.Pool, logger *zap.Logger) *Manager {
	return &Manager{pool: pool, logger: logger}
}

// Join unions rsoIDs into the user's membership set.
func (m *Manager) Join(ctx context.Context, userID int64, rsoIDs []int64) ([]int64, error) {
	if userID <= 0 {
		return nil, apperrors.Validation("userId is required")
	}
	ids, err := normalizeIDs(rsoIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, apperrors.Validation("rsos must be a non-empty list of ids")
	}

	var set []int64
	err = database.WithTx(ctx, m.pool, func(tx pgx.Tx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		repo := NewRepository(tx)
		if err := repo.AddMembers(ctx, userID, ids); err != nil {
			return err
		}
		set, err = repo.Memberships(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("rsos joined", zap.Int64("user_id", userID), zap.Int64s("rso_ids", ids))
	return set, nil
}

// Leave removes rsoIDs from the user's membership set. Ids the user does not
// hold are ignored, so an empty or foreign list returns the set unchanged.
func (m *Manager) Leave(ctx context.Context, userID int64, rsoIDs []int64) ([]int64, error) {
	if userID <= 0 {
		return nil, apperrors.Validation("userId is required")
	}
	ids, err := normalizeIDs(rsoIDs)
	if err != nil {
		return nil, err
	}

	var set []int64
	err = database.WithTx(ctx, m.pool, func(tx pgx.Tx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		repo := NewRepository(tx)
		if len(ids) > 0 {
			if err := repo.RemoveMembers(ctx, userID, ids); err != nil {
				return err
			}
		}
		set, err = repo.Memberships(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("rsos left", zap.Int64("user_id", userID), zap.Int64s("rso_ids", ids))
	return set, nil
}

// Create inserts an RSO, adds it to the creator's membership set and makes
// the creator an admin. A super-admin creator keeps its role.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" || in.Description == "" || in.Category == "" || in.UniversityID <= 0 || in.UserID <= 0 {
		return nil, apperrors.Validation("missing required fields")
	}

	res := &CreateResult{Role: models.RoleAdmin}
	err := database.WithTx(ctx, m.pool, func(tx pgx.Tx) error {
		userRepo := users.NewRepository(tx)
		creator, err := userRepo.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		repo := NewRepository(tx)
		rso, err := repo.Create(ctx, CreateParams{
			Name:         in.Name,
			Description:  in.Description,
			Category:     in.Category,
			UniversityID: in.UniversityID,
			CreatedBy:    &in.UserID,
		})
		if err != nil {
			return err
		}
		if err := repo.AddMembers(ctx, in.UserID, []int64{rso.ID}); err != nil {
			return err
		}
		if creator.Role == models.RoleSuperAdmin {
			res.Role = models.RoleSuperAdmin
		} else if err := userRepo.SetRole(ctx, in.UserID, models.RoleAdmin); err != nil {
			return err
		}
		rso.MemberCount = 1
		res.RSO = rso
		res.Memberships, err = repo.Memberships(ctx, in.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("rso created",
		zap.Int64("rso_id", res.RSO.ID),
		zap.Int64("user_id", in.UserID),
		zap.Int64("university_id", in.UniversityID),
	)
	return res, nil
}

func requireUser(ctx context.Context, db database.DBTX, userID int64) error {
	ok, err := users.NewRepository(db).Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("user not found")
	}
	return nil
}

// normalizeIDs sorts and deduplicates ids and rejects non-positive ones.
func normalizeIDs(ids []int64) ([]int64, error) {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, apperrors.Validation("rso ids must be positive integers")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
