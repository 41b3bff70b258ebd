package services

import (
	"context"

	"github.com/nmehta6/churnbank/internal/core/domain"
	"github.com/nmehta6/churnbank/internal/dto"
)

// AccountSvcFacade covers account opening and reads. Opening accounts is the
// job of an external collaborator in the wider system; the engine exposes the
// minimal surface so it is usable end to end.
type AccountSvcFacade interface {
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error)
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	CloseAccount(ctx context.Context, accountID string, userID string) error
}
