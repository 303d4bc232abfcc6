package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/commercial.txt
var commercialRaw string

// Commercial returns the system instruction for the commercial agent.
func Commercial() string {
	return strings.TrimSpace(commercialRaw)
}
