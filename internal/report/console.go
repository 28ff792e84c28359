package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/sadopc/sqlextract/internal/theme"
)

// Console prints events as styled lines. Per-file lines are printed only when
// Verbose is set; Quiet hides everything but warnings, errors and the final
// summary.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	th      *theme.Theme
	Verbose bool
	Quiet   bool
}

// NewConsole returns a Console writing to w with the styles of th. A nil
// theme uses theme.Current.
func NewConsole(w io.Writer, th *theme.Theme) *Console {
	if th == nil {
		th = theme.Current
	}
	return &Console{w: w, th: th}
}

func (c *Console) Emit(e Event) {
	line := c.format(e)
	if line == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

func (c *Console) format(e Event) string {
	th := c.th
	if c.Quiet && e.Level() == Info && e.Kind != RunDone {
		return ""
	}

	switch e.Kind {
	case Connected:
		return th.Title.Render("Connected") + " " + e.Detail
	case Listed:
		return fmt.Sprintf("%s %d %s", th.Label.Render("Listed"), e.Total, th.Category.Render(e.Category.Folder()))
	case ListingFailed:
		return th.ErrorText.Render("error:") + fmt.Sprintf(" listing %s failed: %v", e.Category.Folder(), e.Err)
	case Written:
		if !c.Verbose {
			return ""
		}
		return "  " + th.SuccessText.Render("wrote") + " " + th.Path.Render(e.Path)
	case EmptyDefinition:
		return th.WarningText.Render("warning:") + " " + e.Subject() + " has no definition"
	case FetchFailed:
		return th.ErrorText.Render("error:") + fmt.Sprintf(" fetching %s: %v", e.Subject(), e.Err)
	case WriteFailed:
		return th.ErrorText.Render("error:") + fmt.Sprintf(" writing %s to %s: %v", e.Subject(), e.Path, e.Err)
	case Overwritten:
		return th.WarningText.Render("warning:") + fmt.Sprintf(" %s replaced %s in %s", e.Subject(), e.Detail, e.Path)
	case CategoryDone:
		return fmt.Sprintf("%s %d/%d written", th.Category.Render(e.Category.Folder()+":"), e.Done, e.Total)
	case Cancelled:
		return th.WarningText.Render("cancelled:") + fmt.Sprintf(" %s stopped after %d/%d", e.Category.Folder(), e.Done, e.Total)
	case RunDone:
		return th.Title.Render("Done") + " " + th.MutedText.Render(e.Detail)
	}
	return ""
}
