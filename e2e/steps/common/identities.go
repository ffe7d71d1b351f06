package common

import (
	"os"
	"strings"
)

// tokenForIdentity maps a scenario identity name to a bearer token minted by
// the harness before the run, looked up as TRAVELCHECK_E2E_TOKEN_<NAME>.
func tokenForIdentity(name string) string {
	key := "TRAVELCHECK_E2E_TOKEN_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	return os.Getenv(key)
}
