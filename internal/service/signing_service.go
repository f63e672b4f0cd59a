package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	infraerrors "github.com/biatec-io/gdrive-account/internal/pkg/errors"
)

// primaryAccountSlot is the slot used for the HTTP signing and address
// endpoints. Additional slots are reachable through LoadAccount directly.
const primaryAccountSlot = 0

// SigningService signs transactions with the account stored in the caller's
// Drive.
type SigningService struct {
	accounts *DriveAccountService
}

func NewSigningService(accounts *DriveAccountService) *SigningService {
	return &SigningService{accounts: accounts}
}

// SignTransaction loads the primary account for the email and returns the
// signature over the canonical transaction bytes.
func (s *SigningService) SignTransaction(ctx context.Context, cred DriveCredential, email string, txn []byte) ([]byte, error) {
	if strings.TrimSpace(email) == "" {
		return nil, infraerrors.BadRequest("EMAIL_REQUIRED", "Email is required")
	}
	if len(txn) == 0 {
		return nil, infraerrors.BadRequest("TRANSACTION_REQUIRED", "Transaction data is required")
	}

	account, err := s.accounts.LoadAccount(ctx, cred, email, primaryAccountSlot)
	if err != nil {
		return nil, fmt.Errorf("load signing account: %w", err)
	}

	slog.Info("transaction signed", "address", account.Address)
	return account.SignTransaction(txn), nil
}

// GetAddress returns the primary account address for the email.
func (s *SigningService) GetAddress(ctx context.Context, cred DriveCredential, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", infraerrors.BadRequest("EMAIL_REQUIRED", "Email is required")
	}

	account, err := s.accounts.LoadAccount(ctx, cred, email, primaryAccountSlot)
	if err != nil {
		return "", fmt.Errorf("load account: %w", err)
	}
	return account.Address, nil
}
