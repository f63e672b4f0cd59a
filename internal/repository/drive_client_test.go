package repository

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/imroc/req/v3"
	"github.com/stretchr/testify/require"

	"github.com/biatec-io/gdrive-account/internal/service"
)

func newTestDriveClient(server *httptest.Server) *driveClient {
	return &driveClient{
		client:    req.C().SetTimeout(5 * time.Second),
		baseURL:   server.URL,
		uploadURL: server.URL + "/upload",
	}
}

func TestFindFolder(t *testing.T) {
	var gotQuery, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[{"id":"folder-1","name":"Biatec"}]}`))
	}))
	defer server.Close()

	file, err := newTestDriveClient(server).FindFolder(context.Background(), service.DriveCredential{AccessToken: "tok"}, "Biatec")
	require.NoError(t, err)
	require.Equal(t, "folder-1", file.ID)
	require.Equal(t, "Biatec", file.Name)
	require.Equal(t, "Bearer tok", gotAuth)
	require.Equal(t, "mimeType = 'application/vnd.google-apps.folder' and name = 'Biatec' and trashed = false", gotQuery)
}

func TestFindFile_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[]}`))
	}))
	defer server.Close()

	file, err := newTestDriveClient(server).FindFile(context.Background(), service.DriveCredential{AccessToken: "tok"}, "AVMAccount-abc.dat", "folder-1")
	require.NoError(t, err)
	require.Nil(t, file)
}

func TestFindFile_ParsesMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"files":[{"id":"file-1","name":"AVMAccount-abc.dat","size":"48","createdTime":"2025-02-01T10:00:00Z","modifiedTime":"2025-02-02T11:30:00Z"}]}`))
	}))
	defer server.Close()

	file, err := newTestDriveClient(server).FindFile(context.Background(), service.DriveCredential{AccessToken: "tok"}, "AVMAccount-abc.dat", "folder-1")
	require.NoError(t, err)
	require.Equal(t, int64(48), file.Size)
	require.Equal(t, 2025, file.CreatedTime.Year())
	require.Equal(t, time.Month(2), file.ModifiedTime.Month())
}

func TestDriveClient_UnauthorizedMapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestDriveClient(server)
	cred := service.DriveCredential{AccessToken: "expired"}

	_, err := client.FindFolder(context.Background(), cred, "Biatec")
	require.ErrorIs(t, err, service.ErrDriveUnauthorized)

	_, err = client.DownloadFile(context.Background(), cred, "file-1")
	require.ErrorIs(t, err, service.ErrDriveUnauthorized)

	_, err = client.UploadFile(context.Background(), cred, "folder-1", "f.dat", []byte("x"))
	require.ErrorIs(t, err, service.ErrDriveUnauthorized)
}

func TestUploadFile_MultipartRelated(t *testing.T) {
	var gotContentType, gotUploadType string
	var metadata, content []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotUploadType = r.URL.Query().Get("uploadType")

		mediaType, params, err := mime.ParseMediaType(gotContentType)
		require.NoError(t, err)
		require.Equal(t, "multipart/related", mediaType)

		reader := multipart.NewReader(r.Body, params["boundary"])
		part, err := reader.NextPart()
		require.NoError(t, err)
		metadata, err = io.ReadAll(part)
		require.NoError(t, err)
		part, err = reader.NextPart()
		require.NoError(t, err)
		content, err = io.ReadAll(part)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file-1","name":"AVMAccount-abc.dat"}`))
	}))
	defer server.Close()

	file, err := newTestDriveClient(server).UploadFile(context.Background(), service.DriveCredential{AccessToken: "tok"}, "folder-1", "AVMAccount-abc.dat", []byte("ciphertext"))
	require.NoError(t, err)
	require.Equal(t, "file-1", file.ID)
	require.Equal(t, "multipart", gotUploadType)
	require.Contains(t, string(metadata), `"name":"AVMAccount-abc.dat"`)
	require.Contains(t, string(metadata), `"parents":["folder-1"]`)
	require.Equal(t, "ciphertext", string(content))
}

func TestDownloadFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "media", r.URL.Query().Get("alt"))
		require.Equal(t, "/files/file-1", r.URL.Path)
		_, _ = w.Write([]byte{0x01, 0x02, 0x03})
	}))
	defer server.Close()

	content, err := newTestDriveClient(server).DownloadFile(context.Background(), service.DriveCredential{AccessToken: "tok"}, "file-1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, content)
}

func TestEscapeQueryValue(t *testing.T) {
	require.Equal(t, `O\'Brien`, escapeQueryValue("O'Brien"))
	require.Equal(t, `a\\b`, escapeQueryValue(`a\b`))
	require.Equal(t, "plain", escapeQueryValue("plain"))
}
