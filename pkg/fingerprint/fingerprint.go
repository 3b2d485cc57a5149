// Package fingerprint derives a low-entropy device identifier from stable
// local signals. It only keys the secondary quota store so that clearing
// the primary store is detectable; it is not usable for cross-site
// identification.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Derive returns a 16-character hex fingerprint for this device.
// Deterministic across processes on the same machine and user.
func Derive() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}

	signals := []string{
		runtime.GOOS,
		runtime.GOARCH,
		host,
		strconv.Itoa(os.Getuid()),
	}

	sum := sha256.Sum256([]byte(strings.Join(signals, "|")))
	return hex.EncodeToString(sum[:])[:16]
}
