package profile

import (
	"errors"
	"fmt"

	"github.com/questhall/questhall/internal/user"
	"gorm.io/gorm"
)

// ProfileRepository defines the data operations for profiles and roles.
type ProfileRepository interface {
	GetByAuthID(authID uint) (*Profile, error)
	GetByID(id uint) (*Profile, error)
	Create(p *Profile) error
	Update(p *Profile) error

	// ResolveByAuthID returns the profile for an account, creating it
	// from the account's metadata when absent.
	ResolveByAuthID(authID uint) (*Profile, error)

	GetRoleByName(name string) (*Role, error)
	GetRoleName(roleID uint) (string, error)
	IsAdmin(p *Profile) (bool, error)

	// Promotion writes the role in two places. The account column is
	// authoritative for session-based checks; the profile reference is
	// best-effort and the caller decides whether its failure matters.
	PromoteAccount(authID uint) error
	PromoteProfile(authID uint) error

	SeedRoles() error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByAuthID(authID uint) (*Profile, error) {
	var p Profile
	if err := r.db.Where("auth_id = ?", authID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) GetByID(id uint) (*Profile, error) {
	var p Profile
	if err := r.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) Create(p *Profile) error {
	return r.db.Create(p).Error
}

func (r *profileRepository) Update(p *Profile) error {
	return r.db.Save(p).Error
}

func (r *profileRepository) ResolveByAuthID(authID uint) (*Profile, error) {
	existing, err := r.GetByAuthID(authID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	var account user.User
	if err := r.db.First(&account, authID).Error; err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}

	p := &Profile{
		AuthID:      authID,
		Email:       account.Email,
		DisplayName: account.Name,
		AvatarURL:   account.AvatarURL,
	}
	if err := r.db.Create(p).Error; err != nil {
		// A concurrent first request may have created it already.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.GetByAuthID(authID)
		}
		return nil, err
	}
	return p, nil
}

func (r *profileRepository) GetRoleByName(name string) (*Role, error) {
	var role Role
	if err := r.db.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *profileRepository) GetRoleName(roleID uint) (string, error) {
	var role Role
	if err := r.db.First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return role.Name, nil
}

// IsAdmin resolves the profile's role reference to a name, fresh on
// every call, and reports whether it is the admin role.
func (r *profileRepository) IsAdmin(p *Profile) (bool, error) {
	if p == nil || p.RoleID == nil {
		return false, nil
	}
	name, err := r.GetRoleName(*p.RoleID)
	if err != nil {
		return false, err
	}
	return name == RoleAdmin, nil
}

func (r *profileRepository) PromoteAccount(authID uint) error {
	if err := r.db.Model(&user.User{}).Where("id = ?", authID).Update("role", user.RoleAdmin).Error; err != nil {
		return fmt.Errorf("failed to update account role: %w", err)
	}
	return nil
}

func (r *profileRepository) PromoteProfile(authID uint) error {
	adminRole, err := r.GetRoleByName(RoleAdmin)
	if err != nil {
		return fmt.Errorf("admin role lookup failed: %w", err)
	}
	return r.db.Model(&Profile{}).Where("auth_id = ?", authID).Update("role_id", adminRole.ID).Error
}

func (r *profileRepository) SeedRoles() error {
	for _, role := range []Role{
		{Name: RoleStudent, Description: "Default member role"},
		{Name: RoleAdmin, Description: "Administrator"},
	} {
		if err := r.db.Where("name = ?", role.Name).FirstOrCreate(&Role{}, role).Error; err != nil {
			return err
		}
	}
	return nil
}
