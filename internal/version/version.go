package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает данные версии, подставляемые через -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion возвращает только номер версии.
func GetVersion() string { return version }

// String возвращает человекочитаемую строку версии.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
