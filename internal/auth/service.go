package auth

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/rsos"
	"github.com/campus-events/backend/internal/universities"
	"github.com/campus-events/backend/internal/users"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/database"
	"github.com/campus-events/backend/pkg/utils"
)

// RegisterInput holds a sign-up. University is a name: students and admins
// join an existing one, a super-admin creates it. Admins also create their
// first RSO.
type RegisterInput struct {
	Email          string
	Password       string
	Role           models.Role
	University     string
	UniDescription string
	UniLocation    string
	UniStudents    int
	RSOName        string
	RSODescription string
	RSOCategory    string
}

// Service implements account registration and authentication.
type Service struct {
	pool       database.Pool
	bcryptCost int
	logger     *zap.Logger
}

// NewService creates an account service.
func NewService(pool database.Pool, bcryptCost int, logger *zap.Logger) *Service {
	return &Service{pool: pool, bcryptCost: bcryptCost, logger: logger}
}

func (in *RegisterInput) validate() error {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.University = strings.TrimSpace(in.University)
	in.RSOName = strings.TrimSpace(in.RSOName)
	switch {
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return apperrors.Validation("a valid email is required")
	case len(in.Password) < utils.MinPasswordLength:
		return apperrors.Validation("password must be at least 6 characters")
	case in.University == "":
		return apperrors.Validation("university is required")
	case in.Role == models.RoleAdmin && in.RSOName == "":
		return apperrors.Validation("rso name is required for admins")
	case in.UniStudents < 0:
		return apperrors.Validation("number of students must not be negative")
	case in.UniStudents > math.MaxInt32:
		return apperrors.Validation("number of students is too large")
	}
	return nil
}

// Register creates the account, and for admins and super-admins the RSO or
// university that comes with it, in one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		if utils.IsPasswordTooLong(err) {
			return nil, apperrors.Validation("password is too long")
		}
		return nil, apperrors.Internal("failed to hash password", err)
	}

	var created *models.User
	err = database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		uniRepo := universities.NewRepository(tx)
		var uniID int64
		if in.Role == models.RoleSuperAdmin {
			uni, err := uniRepo.Create(ctx, universities.CreateParams{
				Name:        in.University,
				Location:    in.UniLocation,
				Description: in.UniDescription,
				NumStudents: in.UniStudents,
			})
			if err != nil {
				return err
			}
			uniID = uni.ID
		} else {
			uni, err := uniRepo.GetByName(ctx, in.University)
			if errors.Is(err, apperrors.ErrNotFound) {
				return apperrors.Validation("university not found; it must be registered by a super-admin first")
			}
			if err != nil {
				return err
			}
			uniID = uni.ID
		}

		u, err := users.NewRepository(tx).Create(ctx, users.CreateParams{
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
			UniversityID: &uniID,
		})
		if err != nil {
			return err
		}

		if in.Role == models.RoleAdmin {
			rsoRepo := rsos.NewRepository(tx)
			rso, err := rsoRepo.Create(ctx, rsos.CreateParams{
				Name:         in.RSOName,
				Description:  in.RSODescription,
				Category:     in.RSOCategory,
				UniversityID: uniID,
				CreatedBy:    &u.ID,
			})
			if err != nil {
				return err
			}
			if err := rsoRepo.AddMembers(ctx, u.ID, []int64{rso.ID}); err != nil {
				return err
			}
			u.RSOs = []int64{rso.ID}
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered",
		zap.Int64("user_id", created.ID),
		zap.String("role", string(created.Role)),
		zap.Int64p("university_id", created.UniversityID),
	)
	return created, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// both reported as a Validation error with the same message.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := users.NewRepository(s.pool).GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Validation("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(password, u.Password) {
		return nil, apperrors.Validation("invalid email or password")
	}
	return u, nil
}

// Me returns the current state of the session user.
func (s *Service) Me(ctx context.Context, userID int64) (*models.User, error) {
	return users.NewRepository(s.pool).GetByID(ctx, userID)
}
