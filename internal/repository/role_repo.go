package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/timmy/moments/internal/domain"
	"gorm.io/gorm"
)

// RoleRepository handles roles and permissions.
type RoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// InitRoles creates the built-in roles and permissions. Existing roles get
// their permission set replaced, so the call is safe to repeat.
func (r *RoleRepository) InitRoles(ctx context.Context) error {
	names := make([]string, 0, len(domain.RolePermissions))
	for name := range domain.RolePermissions {
		names = append(names, name)
	}
	sort.Strings(names)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, roleName := range names {
			var role domain.Role
			if err := tx.Where(domain.Role{Name: roleName}).FirstOrCreate(&role).Error; err != nil {
				return fmt.Errorf("failed to ensure role %s: %w", roleName, err)
			}

			perms := make([]*domain.Permission, 0, len(domain.RolePermissions[roleName]))
			for _, permName := range domain.RolePermissions[roleName] {
				var perm domain.Permission
				if err := tx.Where(domain.Permission{Name: permName}).FirstOrCreate(&perm).Error; err != nil {
					return fmt.Errorf("failed to ensure permission %s: %w", permName, err)
				}
				perms = append(perms, &perm)
			}

			if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
				return fmt.Errorf("failed to set permissions for role %s: %w", roleName, err)
			}
		}
		return nil
	})
}

// GetByName retrieves a role with its permissions preloaded.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.WithContext(ctx).Preload("Permissions").First(&role, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &role, nil
}
