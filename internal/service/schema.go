package service

import (
	"context"
	"fmt"
	"io"

	"github.com/timmy/moments/internal/repository"
	"gorm.io/gorm"
)

// SchemaService creates and drops the application tables.
type SchemaService struct {
	db    *gorm.DB
	roles *repository.RoleRepository
	out   io.Writer
}

// NewSchemaService creates a new SchemaService. Status lines go to out.
func NewSchemaService(db *gorm.DB, out io.Writer) *SchemaService {
	return &SchemaService{
		db:    db,
		roles: repository.NewRoleRepository(db),
		out:   out,
	}
}

// InitDB creates every table, dropping them first when drop is set.
// Confirmation is the caller's job.
func (s *SchemaService) InitDB(ctx context.Context, drop bool) error {
	if drop {
		if err := repository.DropAll(ctx, s.db); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Drop tables.")
	}
	if err := repository.CreateAll(ctx, s.db); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Initialized database.")
	return nil
}

// InitApp creates missing tables and the built-in roles and permissions.
// Safe to run repeatedly.
func (s *SchemaService) InitApp(ctx context.Context) error {
	if err := repository.CreateAll(ctx, s.db); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Initialized the database.")

	if err := s.roles.InitRoles(ctx); err != nil {
		return fmt.Errorf("failed to init roles: %w", err)
	}
	fmt.Fprintln(s.out, "Initialized the roles and permissions.")
	return nil
}
