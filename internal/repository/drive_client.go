package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"

	"github.com/biatec-io/gdrive-account/internal/service"
)

const (
	driveAPIBaseURL    = "https://www.googleapis.com/drive/v3"
	driveUploadBaseURL = "https://www.googleapis.com/upload/drive/v3"

	folderMimeType = "application/vnd.google-apps.folder"
	blobMimeType   = "text/plain"
)

type driveClient struct {
	client    *req.Client
	baseURL   string
	uploadURL string
}

// NewDriveClient talks to the Google Drive REST v3 API with the paired
// device's own access token per call.
func NewDriveClient() service.DriveClient {
	return &driveClient{
		client:    req.C().SetTimeout(60 * time.Second),
		baseURL:   driveAPIBaseURL,
		uploadURL: driveUploadBaseURL,
	}
}

func (c *driveClient) FindFolder(ctx context.Context, cred service.DriveCredential, name string) (*service.DriveFile, error) {
	query := fmt.Sprintf("mimeType = '%s' and name = '%s' and trashed = false", folderMimeType, escapeQueryValue(name))
	return c.findFirst(ctx, cred, query, "files(id, name)")
}

func (c *driveClient) FindFile(ctx context.Context, cred service.DriveCredential, name, folderID string) (*service.DriveFile, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", escapeQueryValue(name), escapeQueryValue(folderID))
	return c.findFirst(ctx, cred, query, "files(id, name, size, createdTime, modifiedTime)")
}

func (c *driveClient) findFirst(ctx context.Context, cred service.DriveCredential, query, fields string) (*service.DriveFile, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBearerAuthToken(cred.AccessToken).
		SetQueryParam("q", query).
		SetQueryParam("fields", fields).
		Get(c.baseURL + "/files")
	if err != nil {
		return nil, fmt.Errorf("drive list request failed: %w", err)
	}
	if err := checkDriveResponse(resp, "list files"); err != nil {
		return nil, err
	}

	first := gjson.GetBytes(resp.Bytes(), "files.0")
	if !first.Exists() {
		return nil, nil
	}
	return parseDriveFile(first), nil
}

func (c *driveClient) CreateFolder(ctx context.Context, cred service.DriveCredential, name string) (*service.DriveFile, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBearerAuthToken(cred.AccessToken).
		SetQueryParam("fields", "id, name").
		SetBody(map[string]any{
			"name":     name,
			"mimeType": folderMimeType,
		}).
		Post(c.baseURL + "/files")
	if err != nil {
		return nil, fmt.Errorf("drive create folder request failed: %w", err)
	}
	if err := checkDriveResponse(resp, "create folder"); err != nil {
		return nil, err
	}
	return parseDriveFile(gjson.ParseBytes(resp.Bytes())), nil
}

func (c *driveClient) UploadFile(ctx context.Context, cred service.DriveCredential, folderID, name string, content []byte) (*service.DriveFile, error) {
	metadata, err := json.Marshal(map[string]any{
		"name":     name,
		"mimeType": blobMimeType,
		"parents":  []string{folderID},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal file metadata: %w", err)
	}

	body, boundary, err := buildMultipartRelated(metadata, content)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBearerAuthToken(cred.AccessToken).
		SetQueryParam("uploadType", "multipart").
		SetQueryParam("fields", "id, name").
		SetContentType(fmt.Sprintf("multipart/related; boundary=%s", boundary)).
		SetBodyBytes(body).
		Post(c.uploadURL + "/files")
	if err != nil {
		return nil, fmt.Errorf("drive upload request failed: %w", err)
	}
	if err := checkDriveResponse(resp, "upload file"); err != nil {
		return nil, err
	}
	return parseDriveFile(gjson.ParseBytes(resp.Bytes())), nil
}

func (c *driveClient) DownloadFile(ctx context.Context, cred service.DriveCredential, fileID string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBearerAuthToken(cred.AccessToken).
		SetQueryParam("alt", "media").
		Get(c.baseURL + "/files/" + fileID)
	if err != nil {
		return nil, fmt.Errorf("drive download request failed: %w", err)
	}
	if err := checkDriveResponse(resp, "download file"); err != nil {
		return nil, err
	}
	return resp.Bytes(), nil
}

// buildMultipartRelated assembles the two-part upload body: JSON metadata
// followed by the raw content.
func buildMultipartRelated(metadata, content []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := writer.CreatePart(metaHeader)
	if err != nil {
		return nil, "", fmt.Errorf("create metadata part: %w", err)
	}
	if _, err := part.Write(metadata); err != nil {
		return nil, "", fmt.Errorf("write metadata part: %w", err)
	}

	contentHeader := textproto.MIMEHeader{}
	contentHeader.Set("Content-Type", blobMimeType)
	part, err = writer.CreatePart(contentHeader)
	if err != nil {
		return nil, "", fmt.Errorf("create content part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", fmt.Errorf("write content part: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return buf.Bytes(), writer.Boundary(), nil
}

func checkDriveResponse(resp *req.Response, op string) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, service.ErrDriveUnauthorized)
	}
	if !resp.IsSuccessState() {
		return fmt.Errorf("%s: status %d, body: %s", op, resp.StatusCode, resp.String())
	}
	return nil
}

func parseDriveFile(result gjson.Result) *service.DriveFile {
	file := &service.DriveFile{
		ID:   result.Get("id").String(),
		Name: result.Get("name").String(),
		Size: result.Get("size").Int(),
	}
	if v := result.Get("createdTime").String(); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			file.CreatedTime = ts
		}
	}
	if v := result.Get("modifiedTime").String(); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			file.ModifiedTime = ts
		}
	}
	return file
}

// escapeQueryValue escapes a value interpolated into a Drive q expression.
func escapeQueryValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}
