package timer

import "fmt"

// FormatTime renders seconds as HH:MM:SS. Hours are zero-padded to two
// digits and never roll over into days. Negative input is treated as 0.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
