// Package cleanup provides ascii reporter
package cleanup

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/caching/interfaces"
)

const (
	cyan     = "\033[38;2;86;182;194m"  // One Dark Cyan: #56B6C2
	dimCyan  = "\033[38;2;47;91;102m"   // Dim Cyan: #2F5B66
	grey     = "\033[38;2;110;118;129m" // Brighter Grey: #6E7681
	dimGrey  = "\033[38;2;75;82;99m"    // Darker Grey: #4B5263
	success  = "\033[38;2;62;130;144m"  // Dim Cyan: #3E8290
	errorRed = "\033[38;2;224;108;117m" // One Dark Red: #E06C75
	white    = "\033[38;2;171;178;191m" // One Dark Foreground: #ABB2BF
	reset    = "\033[0m"
	bold     = "\033[1m"
)

type Reporter struct {
	reaper SessionReaper
	caches []interfaces.Purgeable
	out    io.Writer
}

func NewReporter(reaper SessionReaper, caches []interfaces.Purgeable) *Reporter {
	return &Reporter{reaper: reaper, caches: caches, out: os.Stdout}
}

func (r *Reporter) Print(res Result) {
	fmt.Fprint(r.out, r.Report(res))
}

// Report renders one cleanup pass as a short coloured block
func (r *Reporter) Report(res Result) string {
	var report strings.Builder
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 MST")
	report.WriteString(fmt.Sprintf("%s%s▓ %s | cleanup pass %s(%v)%s\n", bold, dimCyan, timestamp, grey, res.Duration, reset))

	sessions := 0
	if r.reaper != nil {
		sessions = r.reaper.SessionCount()
	}
	report.WriteString(fmt.Sprintf("%s✦ %ssessions open: %s%d%s  %sreaped: %s%d%s\n",
		success, grey, white, sessions, reset, grey, cyan, len(res.Reaped), reset))

	for i, c := range r.caches {
		st := c.Stats()
		state := fmt.Sprintf("%sfresh%s", cyan, reset)
		if st.Expired {
			state = fmt.Sprintf("%sexpired%s", errorRed, reset)
		}
		report.WriteString(fmt.Sprintf("%s✦ %scache %d: %s%d collections%s %s\n",
			dimGrey, grey, i, white, st.Collections, reset, state))
	}
	if res.Purged > 0 {
		report.WriteString(fmt.Sprintf("%s✦ %spurged: %s%d%s\n", success, grey, white, res.Purged, reset))
	}
	return report.String()
}
