package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/alexanderramin/aceflow/internal/service"
)

// ShortID trims a backup ID to the prefix restore accepts in its place.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func FormatBackup(info *service.BackupInfo) string {
	return RenderBox("Backup created", KeyValue(
		[2]string{"Handle", Bold(info.Handle)},
		[2]string{"ID", OrDash(info.ID)},
		[2]string{"Path", info.Path},
		[2]string{"Mode", OrDash(info.Mode)},
		[2]string{"Stage", OrDash(info.Stage)},
		[2]string{"Items", strings.Join(info.Items, ", ")},
	))
}

func FormatBackupList(backups []service.BackupInfo) string {
	if len(backups) == 0 {
		return Dim("No backups yet. Create one with 'aceflow backup'.") + "\n"
	}
	rows := make([][]string, 0, len(backups))
	for _, b := range backups {
		rows = append(rows, []string{
			Bold(b.Handle),
			OrDash(ShortID(b.ID)),
			b.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			OrDash(b.Mode),
			OrDash(b.Stage),
			fmt.Sprintf("%d", len(b.Items)),
		})
	}
	return Header("Backups") + "\n" + RenderTable([]string{"HANDLE", "ID", "CREATED", "MODE", "STAGE", "ITEMS"}, rows)
}

func FormatImport(res *service.ImportResult) string {
	if res.Declined {
		return Dim("Cancelled; template unchanged.") + "\n"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s Imported %s as the %s template\n", StyleGreen.Render("✔"), Bold(res.Path), ModeBadge(res.To)))
	if res.Backup != nil {
		b.WriteString(Dim(fmt.Sprintf("Previous configuration saved as %s (aceflow restore %s)",
			res.Backup.Handle, res.Backup.Handle)) + "\n")
	}
	if res.ModeChanged {
		b.WriteString(Dim(fmt.Sprintf("Mode changed from %s; stage progress starts over at %s.",
			res.From, domain.StageInitialized)) + "\n")
	}
	return b.String()
}

func FormatRestore(res *service.RestoreResult) string {
	if res.Declined {
		return Dim("Cancelled; nothing restored.") + "\n"
	}
	return fmt.Sprintf("%s Restored %s from %s\n",
		StyleGreen.Render("✔"), strings.Join(res.Restored, ", "), Bold(res.Handle))
}

func FormatSwitch(res *service.SwitchResult) string {
	switch {
	case res.Warning != "":
		return Warning(res.Warning) + "\n"
	case res.Declined:
		return Dim("Cancelled; mode unchanged.") + "\n"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s Switched %s %s %s\n",
		StyleGreen.Render("✔"), ModeBadge(res.From), Dim("→"), ModeBadge(res.To)))
	if res.Backup != nil {
		b.WriteString(Dim(fmt.Sprintf("Previous configuration saved as %s (aceflow restore %s)",
			res.Backup.Handle, res.Backup.Handle)) + "\n")
	}
	b.WriteString(Dim("Stage progress starts over at "+domain.StageInitialized+".") + "\n")
	return b.String()
}
