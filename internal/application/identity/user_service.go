package identity

import (
	"context"

	"github.com/erp/catalogsync/internal/domain/identity"
	"go.uber.org/zap"
)

// UserService handles user management operations
type UserService struct {
	uow       identity.UnitOfWork
	publisher SynchroPublisher
	logger    *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(uow identity.UnitOfWork, publisher SynchroPublisher, logger *zap.Logger) *UserService {
	return &UserService{
		uow:       uow,
		publisher: publisher,
		logger:    logger,
	}
}

// Save creates or updates a user, then publishes user.synchro
func (s *UserService) Save(ctx context.Context, input SaveUserInput) (*UserDTO, error) {
	var user *identity.User
	err := s.uow.Do(ctx, func(repos identity.Repositories) error {
		if input.ID == nil {
			u, err := identity.NewUser(input.Email, input.FirstName, input.LastName)
			if err != nil {
				return err
			}
			user = u
		} else {
			u, err := repos.Users.FindByID(ctx, *input.ID)
			if err != nil {
				return err
			}
			if err := u.Update(input.Email, input.FirstName, input.LastName); err != nil {
				return err
			}
			user = u
		}
		return repos.Users.Save(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user saved", zap.String("user_id", user.ID.String()))
	s.publisher.UserSaved(ctx, user.ID)

	dto := ToUserDTO(user)
	return &dto, nil
}
