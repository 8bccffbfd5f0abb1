package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// CopyWithContext copies data from src to dst with context cancellation support
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64

	for {
		// Check for cancellation before each read
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		nr, readErr := src.Read(buf)
		if nr > 0 {
			nw, writeErr := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if writeErr != nil {
				return written, writeErr
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}

// HashFile returns the hex encoded SHA256 digest of a file's content
func HashFile(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file for checksum: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// IsExecutable reports whether path is a regular file with an execute bit set
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}

// VerifyChecksum verifies the SHA256 checksum of a file
func VerifyChecksum(logger *logrus.Entry, filePath, expectedSHA256 string) error {
	logger.WithField("expected", expectedSHA256).Debug("Verifying checksum")

	actualSHA256, err := HashFile(filePath)
	if err != nil {
		return err
	}

	if !strings.EqualFold(actualSHA256, expectedSHA256) {
		logger.WithFields(logrus.Fields{
			"expected": expectedSHA256,
			"actual":   actualSHA256,
		}).Error("Checksum mismatch")
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedSHA256, actualSHA256)
	}

	logger.Debug("Checksum verification successful")
	return nil
}
