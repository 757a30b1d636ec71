package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-login-portal/internal/config"
	"github.com/sandeepkv93/secure-login-portal/internal/repository"
	"github.com/sandeepkv93/secure-login-portal/internal/service"
	"github.com/sandeepkv93/secure-login-portal/internal/tools/common"
)

const toolName = "seed"

type userInput struct {
	Email    string
	Password string
	Name     string
	Address  string
	Mobile   string
}

func NewRootCommand() *cobra.Command {
	opts := &common.Options{}
	cmd := &cobra.Command{Use: "seed", Short: "Provision portal accounts"}
	common.BindFlags(cmd, opts)
	cmd.AddCommand(newCreateUserCommand(opts), newDeactivateUserCommand(opts))
	return cmd
}

func newCreateUserCommand(opts *common.Options) *cobra.Command {
	in := &userInput{}
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an active user, optionally with a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := common.Run(opts, toolName, "create-user", func(ctx context.Context) ([]string, error) {
				cfg, db, err := common.LoadConfigDB(opts.EnvFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				creds, users := newServices(cfg, db)
				return createUser(ctx, creds, users, *in)
			})
			common.Finish(opts, report)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "plain password, hashed before storage")
	cmd.Flags().StringVar(&in.Name, "name", "", "profile name; a profile is created only when set")
	cmd.Flags().StringVar(&in.Address, "address", "", "profile address")
	cmd.Flags().StringVar(&in.Mobile, "mobile", "", "profile mobile number")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newDeactivateUserCommand(opts *common.Options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "deactivate-user",
		Short: "Mark a user inactive so it can no longer log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			report := common.Run(opts, toolName, "deactivate-user", func(ctx context.Context) ([]string, error) {
				cfg, db, err := common.LoadConfigDB(opts.EnvFile)
				if err != nil {
					return nil, err
				}
				defer common.CloseDB(db)
				_, users := newServices(cfg, db)
				return deactivateUser(ctx, users, email)
			})
			common.Finish(opts, report)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user to deactivate")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newServices(cfg *config.Config, db *gorm.DB) (*service.CredentialService, *service.UserService) {
	repo := repository.NewUserRepository(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewCredentialService(repo, cfg.StoreTimeout, logger), service.NewUserService(repo, cfg.StoreTimeout)
}

func createUser(ctx context.Context, creds *service.CredentialService, users *service.UserService, in userInput) ([]string, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	hash, err := creds.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	id, err := creds.CreateUser(ctx, email, hash)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			return nil, fmt.Errorf("user %s already exists: %w", email, err)
		}
		return nil, err
	}
	details := []string{fmt.Sprintf("created user %d: %s", id, email)}

	if strings.TrimSpace(in.Name) == "" {
		return append(details, "no profile created"), nil
	}
	if err := users.CreateProfile(ctx, id, service.ProfileInput{Name: in.Name, Address: in.Address, Mobile: in.Mobile}); err != nil {
		return details, fmt.Errorf("create profile: %w", err)
	}
	return append(details, "created profile: "+strings.TrimSpace(in.Name)), nil
}

func deactivateUser(ctx context.Context, users *service.UserService, email string) ([]string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if err := users.Deactivate(ctx, email); err != nil {
		return nil, err
	}
	return []string{"deactivated user: " + email}, nil
}
