package service

import (
	"context"
	"errors"
	"time"
)

// ErrDriveUnauthorized marks a Drive call rejected with HTTP 401. Callers use
// it to trigger re-pairing instead of retrying.
var ErrDriveUnauthorized = errors.New("google drive access denied: the access token may be expired or invalid")

// DriveCredential scopes Drive calls to one paired device's token.
type DriveCredential struct {
	AccessToken string
}

// DriveFile is the file metadata subset the account repository consumes.
type DriveFile struct {
	ID           string
	Name         string
	Size         int64
	CreatedTime  time.Time
	ModifiedTime time.Time
}

// DriveClient is the remote blob storage contract, implemented against the
// Drive REST API in the repository layer. Find methods return (nil, nil) when
// nothing matches.
type DriveClient interface {
	FindFolder(ctx context.Context, cred DriveCredential, name string) (*DriveFile, error)
	CreateFolder(ctx context.Context, cred DriveCredential, name string) (*DriveFile, error)
	FindFile(ctx context.Context, cred DriveCredential, name, folderID string) (*DriveFile, error)
	UploadFile(ctx context.Context, cred DriveCredential, folderID, name string, content []byte) (*DriveFile, error)
	DownloadFile(ctx context.Context, cred DriveCredential, fileID string) ([]byte, error)
}
