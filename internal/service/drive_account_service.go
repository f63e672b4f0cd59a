package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/biatec-io/gdrive-account/internal/config"
	"github.com/biatec-io/gdrive-account/internal/domain"
	"github.com/biatec-io/gdrive-account/internal/pkg/aescrypt"
	"github.com/biatec-io/gdrive-account/internal/pkg/arc76"
)

// DriveAccountService owns the encrypted account blob in the user's Drive:
// find or create the folder and file, download, decrypt, and derive the
// requested account slot from the stored secret.
type DriveAccountService struct {
	drive DriveClient

	folderName       string
	fileNameTemplate string
	aesKey           []byte
	aesIV            []byte

	// creation collapses concurrent first-time blob creation for the same
	// email into one upload. Single-process only; two replicas racing still
	// both pass the not-found check, which the original system tolerated.
	creation singleflight.Group
}

func NewDriveAccountService(drive DriveClient, cfg *config.Config) (*DriveAccountService, error) {
	key, err := cfg.AES.KeyBytes()
	if err != nil {
		return nil, fmt.Errorf("decode aes key: %w", err)
	}
	iv, err := cfg.AES.IVBytes()
	if err != nil {
		return nil, fmt.Errorf("decode aes iv: %w", err)
	}
	return &DriveAccountService{
		drive:            drive,
		folderName:       cfg.Drive.FolderName,
		fileNameTemplate: cfg.Drive.FileNameTemplate,
		aesKey:           key,
		aesIV:            iv,
	}, nil
}

// FileName resolves the blob filename for the active key/IV generation.
func (s *DriveAccountService) FileName() (string, error) {
	aesID, err := aescrypt.MakeAesID(s.aesKey, s.aesIV)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(s.fileNameTemplate, domain.AesIDPlaceholder, aesID), nil
}

// LoadAccount returns the derived account at the given slot for an email,
// creating the encrypted blob on first access. Decryption failures are
// wrapped with diagnostic context and never retried, the inputs are
// deterministic.
func (s *DriveAccountService) LoadAccount(ctx context.Context, cred DriveCredential, email string, slot uint64) (*arc76.Account, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("email is required")
	}

	fileName, err := s.FileName()
	if err != nil {
		return nil, err
	}

	file, err := s.findOrCreateFile(ctx, cred, email, fileName)
	if err != nil {
		return nil, err
	}

	content, err := s.drive.DownloadFile(ctx, cred, file.ID)
	if err != nil {
		return nil, fmt.Errorf("download account file: %w", err)
	}

	secret, err := aescrypt.Decrypt(content, s.aesKey, s.aesIV, email)
	if err != nil {
		if errors.Is(err, aescrypt.ErrInvalidPadding) {
			return nil, fmt.Errorf("decryption failed for email %q: possible email case mismatch, different encryption credentials, or corrupted file data (file size: %d bytes, see /api/device/diagnose/{sessionId}): %w", email, len(content), err)
		}
		return nil, fmt.Errorf("failed to decrypt account data for email %q (file size: %d bytes): %w", email, len(content), err)
	}

	account, err := arc76.DeriveAccount(email, string(secret), slot)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}
	return account, nil
}

// Diagnosis reports what a troubleshooting walk of the user's Drive found.
type Diagnosis struct {
	Email            string     `json:"email"`
	FolderFound      bool       `json:"folderFound"`
	FileFound        bool       `json:"fileFound"`
	File             *DriveFile `json:"file,omitempty"`
	Message          string     `json:"message"`
	SuggestedActions []string   `json:"suggestedActions,omitempty"`
}

// Diagnose checks folder and file existence with the device's own credential
// and reports likely causes for decryption failures. It never downloads or
// decrypts anything.
func (s *DriveAccountService) Diagnose(ctx context.Context, cred DriveCredential, email string) (*Diagnosis, error) {
	fileName, err := s.FileName()
	if err != nil {
		return nil, err
	}

	folder, err := s.drive.FindFolder(ctx, cred, s.folderName)
	if err != nil {
		return nil, fmt.Errorf("find folder: %w", err)
	}
	if folder == nil {
		return &Diagnosis{
			Email:   email,
			Message: fmt.Sprintf("%s folder not found. Account file doesn't exist yet.", s.folderName),
			SuggestedActions: []string{
				"Try accessing the account through normal authentication first to create the initial encrypted file.",
			},
		}, nil
	}

	file, err := s.drive.FindFile(ctx, cred, fileName, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("find file: %w", err)
	}
	if file == nil {
		return &Diagnosis{
			Email:       email,
			FolderFound: true,
			Message:     fmt.Sprintf("%s file not found in %s folder.", fileName, s.folderName),
			SuggestedActions: []string{
				"Try accessing the account through normal authentication first to create the initial encrypted file.",
			},
		}, nil
	}

	return &Diagnosis{
		Email:       email,
		FolderFound: true,
		FileFound:   true,
		File:        file,
		Message:     "Account file found. The issue might be with email case sensitivity or encryption key derivation.",
		SuggestedActions: []string{
			"Verify that the email case matches exactly between device pairing and normal authentication",
			"Check if the AES key and IV configuration are identical",
			"Try re-pairing the device to ensure fresh tokens",
		},
	}, nil
}

func (s *DriveAccountService) findOrCreateFile(ctx context.Context, cred DriveCredential, email, fileName string) (*DriveFile, error) {
	folder, err := s.drive.FindFolder(ctx, cred, s.folderName)
	if err != nil {
		return nil, fmt.Errorf("find folder: %w", err)
	}
	if folder == nil {
		folder, err = s.drive.CreateFolder(ctx, cred, s.folderName)
		if err != nil {
			return nil, fmt.Errorf("create folder: %w", err)
		}
	}

	file, err := s.drive.FindFile(ctx, cred, fileName, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("find account file: %w", err)
	}
	if file != nil {
		return file, nil
	}

	created, err, _ := s.creation.Do(email, func() (any, error) {
		return s.createAccountFile(ctx, cred, email, fileName, folder.ID)
	})
	if err != nil {
		return nil, err
	}
	return created.(*DriveFile), nil
}

func (s *DriveAccountService) createAccountFile(ctx context.Context, cred DriveCredential, email, fileName, folderID string) (*DriveFile, error) {
	secret, err := arc76.NewSecret()
	if err != nil {
		return nil, err
	}
	encrypted, err := aescrypt.Encrypt([]byte(secret), s.aesKey, s.aesIV, email)
	if err != nil {
		return nil, fmt.Errorf("encrypt new account: %w", err)
	}

	if _, err := s.drive.UploadFile(ctx, cred, folderID, fileName, encrypted); err != nil {
		return nil, fmt.Errorf("upload account file: %w", err)
	}

	// Confirm the write is visible. An upload the subsequent list cannot see
	// must fail hard rather than let the caller derive from a phantom blob.
	file, err := s.drive.FindFile(ctx, cred, fileName, folderID)
	if err != nil {
		return nil, fmt.Errorf("confirm account file: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("file upload failed, file not found after upload")
	}

	slog.Info("created encrypted account file", "email", email, "file_id", file.ID)
	return file, nil
}
