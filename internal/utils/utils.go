// Package utils holds small formatting helpers shared by the CLI and logs.
package utils

import (
	"fmt"
	"time"
)

// FormatDuration formats d the way the demo CLI prints connection ages:
// "Xh Ym Zs", dropping leading zero components.
func FormatDuration(d time.Duration) string {
	seconds := int(d.Seconds()) % 60
	minutes := int(d.Minutes()) % 60
	hours := int(d.Hours())

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
