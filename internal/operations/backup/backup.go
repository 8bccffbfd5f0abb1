package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/CloudNativeWorks/lynx-node/internal/operations/common"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/files"
	"github.com/CloudNativeWorks/lynx-node/internal/operations/store"
	"github.com/CloudNativeWorks/lynx-node/pkg/logger"
)

var (
	// ErrBackupToolUnavailable means lynx-cli is not installed
	ErrBackupToolUnavailable = errors.New("wallet backup tool unavailable")
	// ErrBackupFailed means the node did not produce a backup file
	ErrBackupFailed = errors.New("wallet backup failed")
)

const (
	LastHashKey      = ".last-hash"
	Extension        = ".dat"
	DefaultRetention = 90 * 24 * time.Hour

	timestampLayout = "2006-01-02-15-04-05"
)

// WalletSource produces wallet dumps
type WalletSource interface {
	ControlAvailable() bool
	BackupWallet(ctx context.Context, path string) error
}

// Record is a retained backup file
type Record struct {
	Name    string    `json:"name" yaml:"name"`
	Path    string    `json:"path" yaml:"path"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"modified" yaml:"modified"`
	Hash    string    `json:"sha256,omitempty" yaml:"sha256,omitempty"`
}

// Result describes one archiver invocation. Record is nil when nothing
// new was retained.
type Result struct {
	Record    *Record  `json:"record,omitempty" yaml:"record,omitempty"`
	Duplicate bool     `json:"duplicate" yaml:"duplicate"`
	Pruned    []string `json:"pruned,omitempty" yaml:"pruned,omitempty"`
}

type Options struct {
	Dir       string
	ChainID   string
	Retention time.Duration
	Wallet    WalletSource
	Now       func() time.Time
}

type Archiver struct {
	dir       string
	chainID   string
	retention time.Duration
	wallet    WalletSource
	store     *store.Store
	now       func() time.Time
	logger    *logger.Logger
}

func New(opts Options) *Archiver {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Archiver{
		dir:       opts.Dir,
		chainID:   opts.ChainID,
		retention: opts.Retention,
		wallet:    opts.Wallet,
		store:     store.New(opts.Dir),
		now:       opts.Now,
		logger:    logger.NewLogger("backup"),
	}
}

// FileName returns the backup file name for t, always in UTC
func FileName(t time.Time, chainID string) string {
	return t.UTC().Format(timestampLayout) + "-" + chainID + Extension
}

// Run takes one backup and applies retention
func (a *Archiver) Run(ctx context.Context) (res Result, err error) {
	if !a.wallet.ControlAvailable() {
		return Result{}, ErrBackupToolUnavailable
	}

	defer func() {
		pruned, pruneErr := a.Prune()
		res.Pruned = pruned
		if pruneErr != nil {
			a.logger.Warnf("retention sweep failed: %v", pruneErr)
		}
	}()

	if err := os.MkdirAll(a.dir, 0700); err != nil {
		return Result{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := FileName(a.now(), a.chainID)
	// retained backups are never written to directly
	staged := filepath.Join(a.dir, "."+name+".partial")
	if err := a.wallet.BackupWallet(ctx, staged); err != nil {
		a.discard(staged)
		return Result{}, fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}
	defer a.discard(staged)

	if _, err := os.Stat(staged); err != nil {
		return Result{}, fmt.Errorf("%w: node reported success but %s is missing", ErrBackupFailed, filepath.Base(staged))
	}
	hash, err := common.HashFile(staged)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}

	duplicate := false
	var path string
	err = a.store.Update(LastHashKey, func(current string, found bool) (string, error) {
		if found && current == hash {
			duplicate = true
			return current, nil
		}
		p, err := a.retain(staged, name)
		if err != nil {
			return "", err
		}
		path = p
		return hash, nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to retain backup: %w", err)
	}

	if duplicate {
		a.logger.Infof("wallet unchanged since last backup, discarding %s", name)
		return Result{Duplicate: true}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBackupFailed, err)
	}
	a.logger.Infof("wallet backed up to %s", path)
	return Result{Record: &Record{
		Name:    filepath.Base(path),
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Hash:    hash,
	}}, nil
}

// retain moves the staged file to name, or to name with a numeric suffix
// when a backup already holds that name.
func (a *Archiver) retain(staged, name string) (string, error) {
	base := strings.TrimSuffix(name, Extension)
	for i := 0; i < 100; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", base, i, Extension)
		}
		path := filepath.Join(a.dir, candidate)
		if _, err := os.Lstat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return "", err
		}
		if err := os.Rename(staged, path); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", fmt.Errorf("no free backup name for %s", name)
}

func (a *Archiver) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		a.logger.Warnf("failed to remove %s: %v", path, err)
	}
}

// Prune deletes backups older than the retention period
func (a *Archiver) Prune() ([]string, error) {
	expired, err := files.OlderThan(a.dir, Extension, a.now().Add(-a.retention))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", a.dir, err)
	}
	if len(expired) == 0 {
		return nil, nil
	}
	result := files.DeleteFiles(expired, a.logger)
	if len(result.Errors) > 0 {
		return result.DeletedFiles, fmt.Errorf("failed to delete %d expired backups: %w", len(result.Errors), errors.Join(result.Errors...))
	}
	a.logger.Infof("pruned %d backups older than %s", len(result.DeletedFiles), a.retention)
	return result.DeletedFiles, nil
}

// List returns retained backups, newest first
func (a *Archiver) List() ([]Record, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []Record
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		records = append(records, Record{
			Name:    entry.Name(),
			Path:    filepath.Join(a.dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ModTime.After(records[j].ModTime)
	})
	return records, nil
}
