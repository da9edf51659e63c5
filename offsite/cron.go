package offsite

import "text/template"

// CronData is the context the rotation cron template is rendered with.
type CronData struct {
	Targets       []string
	UniqueTargets []string
	BackupRoot    string
	RotateScript  string
	User          string
	Hour          int
}

// cronFuncs spreads rotation jobs across the hour so targets do not all
// hard-link at the same minute.
var cronFuncs = template.FuncMap{
	"minute": func(i int) int { return (i * 7) % 60 },
}

func (s Settings) cronData(targets []string) CronData {
	return CronData{
		Targets:       targets,
		UniqueTargets: UniqueTargets(targets),
		BackupRoot:    s.BackupRoot,
		RotateScript:  s.RotateScript,
		User:          "root",
		Hour:          s.CronHour,
	}
}
