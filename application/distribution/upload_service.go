package distribution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"face-scenes/domain/distribution"
)

// ErrInsufficientStorage is returned when the clips do not fit in the Drive quota
var ErrInsufficientStorage = errors.New("insufficient Google Drive storage")

// UploadService handles file upload operations to Google Drive
type UploadService struct {
	driveClient distribution.DriveClient
	folderID    string
	output      io.Writer
}

// NewUploadService creates a new upload service
func NewUploadService(client distribution.DriveClient, folderID string, output io.Writer) *UploadService {
	if output == nil {
		output = io.Discard
	}
	return &UploadService{
		driveClient: client,
		folderID:    folderID,
		output:      output,
	}
}

// UploadClips checks the quota for all clips, then uploads and shares them in order.
// It stops at the first failed upload and returns the clips uploaded so far.
func (s *UploadService) UploadClips(ctx context.Context, paths []string) ([]distribution.UploadResult, error) {
	if s.folderID == "" {
		return nil, fmt.Errorf("no Google Drive folder configured (google.folder_id)")
	}
	if len(paths) == 0 {
		return nil, nil
	}

	// Check storage for the whole batch before uploading anything
	var total int64
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("file does not exist: %s", p)
		}
		total += info.Size()
	}

	storage, err := s.driveClient.GetStorageQuota(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check storage: %w", err)
	}
	if !storage.HasSpaceFor(total) {
		return nil, fmt.Errorf("%w: need %.1f MB, %.1f MB available",
			ErrInsufficientStorage, megabytes(total), megabytes(storage.AvailableBytes))
	}

	results := make([]distribution.UploadResult, 0, len(paths))
	for i, p := range paths {
		fmt.Fprintf(s.output, "  [%d/%d] Uploading %s...\n", i+1, len(paths), filepath.Base(p))
		result, err := s.UploadClip(ctx, p)
		if err != nil {
			return results, err
		}
		fmt.Fprintf(s.output, "        %s\n", result.ShareableURL)
		results = append(results, *result)
	}
	return results, nil
}

// UploadClip uploads one clip, replacing a file of the same name in the folder
func (s *UploadService) UploadClip(ctx context.Context, filePath string) (*distribution.UploadResult, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}

	fileName := filepath.Base(filePath)

	// Replace a clip left by an earlier upload
	existing, err := s.driveClient.FindFileByName(ctx, s.folderID, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing file: %w", err)
	}
	if existing != nil {
		fmt.Fprintf(s.output, "        Replacing existing %s (%.1f MB)\n", existing.Name, megabytes(existing.Size))
		if err := s.driveClient.DeletePermanently(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to delete existing file %s: %w", existing.Name, err)
		}
	}

	req := distribution.UploadRequest{
		LocalPath: filePath,
		FileName:  fileName,
		FolderID:  s.folderID,
		MimeType:  distribution.MimeTypeMP4,
	}

	// Upload and make it viewable by link
	result, err := s.driveClient.UploadAndShare(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload and share %s: %w", fileName, err)
	}

	return result, nil
}

func megabytes(n int64) float64 {
	return float64(n) / 1024 / 1024
}
