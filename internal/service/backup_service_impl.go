package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/repository"
	"github.com/google/uuid"
)

const (
	backupPrefix     = "config_backup_"
	backupTimeLayout = "20060102_150405"
	manifestName     = "manifest.toml"
	minIDPrefix      = 4

	// LatestBackup resolves to the newest bundle in Restore.
	LatestBackup = "latest"
)

// Bundle item names.
const (
	itemConfig  = "config"
	itemState   = repository.StateFileName
	itemRecords = repository.StageProgressFileName
	itemRules   = "clinerules"
)

// backupManifest is the manifest.toml of a bundle.
type backupManifest struct {
	ID        string    `toml:"id"`
	Handle    string    `toml:"handle"`
	CreatedAt time.Time `toml:"created_at"`
	Mode      string    `toml:"mode,omitempty"`
	Stage     string    `toml:"current_stage,omitempty"`
	Items     []string  `toml:"items"`
}

type backupService struct {
	layout   repository.Layout
	repo     repository.StateRepo
	lock     repository.Locker
	confirm  Confirmer
	now      func() time.Time
	observer UseCaseObserver
}

func NewBackupService(
	layout repository.Layout,
	repo repository.StateRepo,
	lock repository.Locker,
	confirm Confirmer,
	observers ...UseCaseObserver,
) BackupService {
	return &backupService{
		layout:   layout,
		repo:     repo,
		lock:     lock,
		confirm:  confirmerOrDefault(confirm),
		now:      time.Now,
		observer: useCaseObserverOrNoop(observers),
	}
}

// liveItem maps a bundle item to its live location.
func (s *backupService) liveItem(item string) string {
	switch item {
	case itemConfig:
		return s.layout.ConfigDir()
	case itemState:
		return s.layout.StateFile()
	case itemRecords:
		return s.layout.StageProgressFile()
	case itemRules:
		return s.layout.RulesFile()
	}
	return ""
}

var bundleItems = []string{itemConfig, itemState, itemRecords, itemRules}

func (s *backupService) presentItems() []string {
	var present []string
	for _, item := range bundleItems {
		if ok, _ := repository.FileExists(s.liveItem(item)); ok {
			present = append(present, item)
		}
	}
	return present
}

// Backup snapshots the config directory, state, stage records and rules
// mirror into a new timestamp-named bundle. Bundles created within the same
// second get a numeric suffix.
func (s *backupService) Backup(ctx context.Context) (info *BackupInfo, err error) {
	fields := map[string]any{}
	finish := trackUseCase(ctx, s.observer, "backup", fields)
	defer func() { finish(err) }()

	if len(s.presentItems()) == 0 {
		return nil, fmt.Errorf("%w: nothing to back up in %s", domain.ErrStateMissing, s.layout.Root)
	}

	err = s.lock.WithLock(ctx, func() error {
		present := s.presentItems()
		if len(present) == 0 {
			return fmt.Errorf("%w: nothing to back up in %s", domain.ErrStateMissing, s.layout.Root)
		}

		now := s.now()
		handle, dir, err := s.reserveBundle(now)
		if err != nil {
			return err
		}
		if err := s.fillBundle(dir, present); err != nil {
			_ = os.RemoveAll(dir)
			return err
		}

		manifest := backupManifest{
			ID:        uuid.New().String(),
			Handle:    handle,
			CreatedAt: now.UTC(),
			Items:     present,
		}
		if state, err := s.repo.Load(ctx); err == nil {
			manifest.Mode = string(state.Project.Mode)
			manifest.Stage = state.CurrentStage
		}
		var buf strings.Builder
		if err := toml.NewEncoder(&buf).Encode(manifest); err != nil {
			_ = os.RemoveAll(dir)
			return fmt.Errorf("encoding backup manifest: %w", err)
		}
		if err := repository.WriteFileAtomic(filepath.Join(dir, manifestName), []byte(buf.String()), 0o644); err != nil {
			_ = os.RemoveAll(dir)
			return err
		}
		info = manifest.info(dir)
		return nil
	})
	if err != nil {
		return nil, err
	}
	fields["handle"] = info.Handle
	return info, nil
}

// reserveBundle creates an unused bundle directory for now.
func (s *backupService) reserveBundle(now time.Time) (string, string, error) {
	root := s.layout.BackupDir()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", "", fmt.Errorf("%w: creating %s: %v", domain.ErrPersistence, root, err)
	}
	base := backupPrefix + now.Format(backupTimeLayout)
	for n := 0; ; n++ {
		handle := base
		if n > 0 {
			handle = fmt.Sprintf("%s_%d", base, n)
		}
		dir := filepath.Join(root, handle)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return handle, dir, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", "", fmt.Errorf("%w: creating backup %s: %v", domain.ErrPersistence, handle, err)
		}
	}
}

func (s *backupService) fillBundle(dir string, items []string) error {
	for _, item := range items {
		src := s.liveItem(item)
		dst := filepath.Join(dir, item)
		var err error
		if item == itemConfig {
			err = repository.CopyDir(src, dst)
		} else {
			err = repository.CopyFile(src, dst)
		}
		if err != nil {
			return fmt.Errorf("%w: backing up %s: %v", domain.ErrPersistence, item, err)
		}
	}
	return nil
}

func (s *backupService) List(ctx context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.layout.BackupDir())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	var out []BackupInfo
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		info, err := s.readBundle(e.Name())
		if err != nil {
			continue
		}
		out = append(out, *info)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		if si, sj := bundleSeq(out[i].Handle), bundleSeq(out[j].Handle); si != sj {
			return si > sj
		}
		return out[i].Handle > out[j].Handle
	})
	return out, nil
}

// bundleSeq returns the _N suffix reserveBundle appends to same-second
// handles, or 0 for the first bundle of that second.
func bundleSeq(handle string) int {
	stamp := strings.TrimPrefix(handle, backupPrefix)
	if len(stamp) <= len(backupTimeLayout)+1 || stamp[len(backupTimeLayout)] != '_' {
		return 0
	}
	n, err := strconv.Atoi(stamp[len(backupTimeLayout)+1:])
	if err != nil {
		return 0
	}
	return n
}

// readBundle loads a bundle's manifest. Bundles without one are described
// from their name and contents.
func (s *backupService) readBundle(handle string) (*BackupInfo, error) {
	dir := filepath.Join(s.layout.BackupDir(), handle)
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err == nil {
		var m backupManifest
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing %s manifest: %w", handle, err)
		}
		m.Handle = handle
		return m.info(dir), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	stamp := strings.TrimPrefix(handle, backupPrefix)
	if len(stamp) > len(backupTimeLayout) {
		stamp = stamp[:len(backupTimeLayout)]
	}
	created, err := time.ParseInLocation(backupTimeLayout, stamp, time.Local)
	if err != nil {
		return nil, fmt.Errorf("backup %s: unrecognized name", handle)
	}
	m := backupManifest{Handle: handle, CreatedAt: created}
	for _, item := range bundleItems {
		if ok, _ := repository.FileExists(filepath.Join(dir, item)); ok {
			m.Items = append(m.Items, item)
		}
	}
	return m.info(dir), nil
}

func (m backupManifest) info(dir string) *BackupInfo {
	return &BackupInfo{
		Handle:    m.Handle,
		Path:      dir,
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Mode:      m.Mode,
		Stage:     m.Stage,
		Items:     append([]string(nil), m.Items...),
	}
}

func (s *backupService) resolve(ctx context.Context, handle string) (*BackupInfo, error) {
	backups, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	handle = strings.TrimSpace(handle)
	if handle == LatestBackup && len(backups) > 0 {
		return &backups[0], nil
	}
	available := make([]string, 0, len(backups))
	for i := range backups {
		if backups[i].Handle == handle {
			return &backups[i], nil
		}
		available = append(available, backups[i].Handle)
	}

	// A manifest ID, or an unambiguous prefix of one, also names a bundle.
	var match *BackupInfo
	if len(handle) >= minIDPrefix {
		for i := range backups {
			if !strings.HasPrefix(backups[i].ID, handle) {
				continue
			}
			if match != nil {
				return nil, fmt.Errorf("%w: id prefix %q matches %s and %s",
					domain.ErrBackupNotFound, handle, match.Handle, backups[i].Handle)
			}
			match = &backups[i]
		}
	}
	if match != nil {
		return match, nil
	}
	return nil, &domain.BackupNotFoundError{Handle: handle, Available: available}
}

// Restore replaces the live items recorded in the bundle's manifest. Items
// the bundle does not hold are left untouched.
func (s *backupService) Restore(ctx context.Context, handle string, opts Options) (result *RestoreResult, err error) {
	fields := map[string]any{"handle": handle, "force": opts.Force}
	finish := trackUseCase(ctx, s.observer, "restore", fields)
	defer func() { finish(err) }()

	info, err := s.resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	result = &RestoreResult{Handle: info.Handle}
	msg := fmt.Sprintf("Restore backup %s? This replaces %s.", info.Handle, strings.Join(info.Items, ", "))
	if !approved(s.confirm, opts, msg) {
		result.Declined = true
		return result, nil
	}

	err = s.lock.WithLock(ctx, func() error {
		for _, item := range info.Items {
			src := filepath.Join(info.Path, item)
			dst := s.liveItem(item)
			if dst == "" {
				continue
			}
			if item == itemConfig {
				err := repository.ReplaceDir(dst, func(staging string) error {
					return repository.CopyDir(src, staging)
				})
				if err != nil {
					return err
				}
			} else if err := repository.CopyFile(src, dst); err != nil {
				return fmt.Errorf("%w: restoring %s: %v", domain.ErrPersistence, item, err)
			}
			result.Restored = append(result.Restored, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Applied = true
	return result, nil
}
