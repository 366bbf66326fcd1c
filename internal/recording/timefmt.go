package recording

import "fmt"

// FormatElapsed renders whole seconds as minutes:seconds. Minutes are not
// rolled over into hours.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
