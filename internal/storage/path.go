package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// AttachmentPath namespaces an upload as {ticketID}/{unixMillis}-{name}.
func AttachmentPath(ticketID string, at time.Time, originalName string) string {
	name := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r == '/' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	if name == "." || name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%d-%s", ticketID, at.UnixMilli(), name)
}
