package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alexanderramin/aceflow/internal/testutil"
	tmpl "github.com/alexanderramin/aceflow/internal/template"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	return func() time.Time { return testutil.FixedNow }
}

func newTestStageService(p *testutil.Project, c Confirmer) *stageService {
	svc := NewStageService(p.Repo, p.Lock, p.Catalog, c).(*stageService)
	svc.now = fixedClock()
	return svc
}

func newTestValidationService(p *testutil.Project) *validationService {
	svc := NewValidationService(p.Layout, p.Repo, p.Lock, p.Catalog, tmpl.Builtin()).(*validationService)
	svc.now = fixedClock()
	return svc
}

func newTestBackupService(p *testutil.Project, c Confirmer) *backupService {
	svc := NewBackupService(p.Layout, p.Repo, p.Lock, c).(*backupService)
	svc.now = fixedClock()
	return svc
}

func newTestModeService(p *testutil.Project, c Confirmer) *modeService {
	backups := newTestBackupService(p, AlwaysConfirm)
	svc := NewModeService(p.Layout, p.Repo, p.Lock, backups, tmpl.Builtin(), c).(*modeService)
	svc.now = fixedClock()
	return svc
}

func newTestProjectService(p *testutil.Project) *projectService {
	svc := NewProjectService(p.Layout, p.Repo, p.Lock, tmpl.Builtin()).(*projectService)
	svc.now = fixedClock()
	return svc
}

var force = Options{Force: true}

func readBytes(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func mustStatus(t *testing.T, svc StageService) *StatusView {
	t.Helper()
	view, err := svc.Status(context.Background())
	require.NoError(t, err)
	return view
}
