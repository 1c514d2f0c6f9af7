package internal

import "fmt"

var (
	Version = ""
	Commit  = ""
)

func PrintableVersion() string {
	return fmt.Sprintf("recap %s (%s)", Version, Commit)
}
