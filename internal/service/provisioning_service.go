package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/repository"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

type provisioningCredentialStore interface {
	Create(ctx context.Context, identity *models.Identity) error
	Delete(ctx context.Context, username string) error
}

type provisioningProfileStore interface {
	CreateStudent(ctx context.Context, profile *models.StudentProfile) error
	CreateInstructor(ctx context.Context, profile *models.InstructorProfile) error
}

// CreateAccountRequest describes an account provisioning payload. The
// role decides which of the profile attribute groups must be present.
type CreateAccountRequest struct {
	Username string      `json:"username" validate:"required"`
	Password string      `json:"password" validate:"required"`
	Role     models.Role `json:"role" validate:"required,oneof=STUDENT INSTRUCTOR ADMIN"`

	RollNumber string `json:"roll_number"`
	Program    string `json:"program"`
	Year       int    `json:"year"`
	Department string `json:"department"`
}

// ProvisioningConfig carries the password policy applied at account
// creation.
type ProvisioningConfig struct {
	PasswordMinLength int
	BcryptCost        int
}

// ProvisioningService creates an identity in the credential store plus
// its role-specific profile in the domain store as one logical
// operation. The two stores cannot share a transaction, so the second
// write carries a compensating delete of the first.
type ProvisioningService struct {
	credentials provisioningCredentialStore
	profiles    provisioningProfileStore
	validator   *validator.Validate
	logger      *zap.Logger
	config      ProvisioningConfig
}

// NewProvisioningService constructs ProvisioningService.
func NewProvisioningService(credentials provisioningCredentialStore, profiles provisioningProfileStore, validate *validator.Validate, logger *zap.Logger, config ProvisioningConfig) *ProvisioningService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PasswordMinLength <= 0 {
		config.PasswordMinLength = 8
	}
	if config.BcryptCost <= 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &ProvisioningService{credentials: credentials, profiles: profiles, validator: validate, logger: logger, config: config}
}

// CreateAccount provisions a new identity and its role profile.
//
// Step 1 inserts the identity; the uniqueness check and insert are one
// atomic statement, so a duplicate username fails before any domain
// write. Step 2 inserts the profile; if it fails for any reason the
// identity from step 1 is deleted again. When that compensating delete
// itself fails the error carries the PARTIAL_PROVISIONING_FAILURE code
// so an operator can reconcile; the whole operation must not be
// retried in that state because the identity may or may not exist.
func (s *ProvisioningService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*models.Account, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid account payload")
	}
	if err := s.validateRoleAttributes(req); err != nil {
		return nil, err
	}
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, appErrors.Clone(appErrors.ErrWeakPassword, "password shorter than policy minimum")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	identity := &models.Identity{
		Username:     req.Username,
		PasswordHash: string(passwordHash),
		Role:         req.Role,
	}
	if err := s.credentials.Create(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create identity")
	}

	account := &models.Account{Identity: *identity}
	profileErr := s.createProfile(ctx, req, account)
	if profileErr == nil {
		return account, nil
	}

	if compErr := s.credentials.Delete(ctx, req.Username); compErr != nil {
		s.logger.Error("provisioning compensation failed; identity may be orphaned",
			zap.String("username", req.Username),
			zap.NamedError("profile_error", profileErr),
			zap.NamedError("compensation_error", compErr),
		)
		return nil, appErrors.Wrap(compErr, appErrors.ErrPartialProvisioning.Code, appErrors.ErrPartialProvisioning.Status, appErrors.ErrPartialProvisioning.Message)
	}

	s.logger.Warn("provisioning rolled back after profile failure",
		zap.String("username", req.Username),
		zap.Error(profileErr),
	)
	return nil, appErrors.Wrap(profileErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "account provisioning failed")
}

func (s *ProvisioningService) validateRoleAttributes(req CreateAccountRequest) error {
	switch req.Role {
	case models.RoleStudent:
		if req.RollNumber == "" || req.Program == "" || req.Year == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "student accounts require roll number, program and year")
		}
	case models.RoleInstructor:
		if req.Department == "" {
			return appErrors.Clone(appErrors.ErrValidation, "instructor accounts require a department")
		}
	case models.RoleAdmin:
		// no profile attributes
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	return nil
}

func (s *ProvisioningService) createProfile(ctx context.Context, req CreateAccountRequest, account *models.Account) error {
	switch req.Role {
	case models.RoleStudent:
		profile := &models.StudentProfile{
			UserID:     req.Username,
			RollNumber: req.RollNumber,
			Program:    req.Program,
			Year:       req.Year,
		}
		if err := s.profiles.CreateStudent(ctx, profile); err != nil {
			return err
		}
		account.Student = profile
	case models.RoleInstructor:
		profile := &models.InstructorProfile{
			UserID:     req.Username,
			Department: req.Department,
		}
		if err := s.profiles.CreateInstructor(ctx, profile); err != nil {
			return err
		}
		account.Instructor = profile
	case models.RoleAdmin:
		// admins carry no domain profile
	}
	return nil
}
