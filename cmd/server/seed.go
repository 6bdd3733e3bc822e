package main

import (
	"github.com/spf13/cobra"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/app/service"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common/security"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/domain/model"
)

// NewSeedAdminCmd creates the seed-admin subcommand.
func NewSeedAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or reset an administrator account",
		Long: `Create an administrator with the given email, or promote and reactivate
the existing account and reset its password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeedAdmin(cmd, email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	cmd.Flags().StringVar(&password, "password", "", "administrator password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func runSeedAdmin(cmd *cobra.Command, email, password string) error {
	req := service.RegisterRequest{Email: email, Password: password, Role: model.RoleAdmin}
	if err := req.Validate().Err(); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	hash, err := security.NewBcryptHasher().Hash(password)
	if err != nil {
		return err
	}
	admin, err := a.users.UpsertByEmail(ctx, &model.User{
		Email:           email,
		PasswordHash:    hash,
		Role:            model.RoleAdmin,
		IsActive:        true,
		IsEmailVerified: true,
	})
	if err != nil {
		return err
	}
	logger.Info("administrator ready", "id", admin.ID, "email", admin.Email)
	return nil
}
