package htmx

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// ToastsID is the id of the element flashes are appended to.
const ToastsID = "toasts"

// FlashError marks a flash reporting a failure. Any other level string is
// rendered as a toast-<level> class.
const FlashError = "error"

// DismissAfter is the data-auto-dismiss delay of a toast, in milliseconds.
var DismissAfter = 3000

// Flash is a toast message delivered with a fragment response.
type Flash struct {
	Level   string
	Message string
}

// Flashes renders flashes as an out-of-band swap appending to #toasts, so
// they can follow any fragment in the same response. No flashes render
// nothing.
func Flashes(flashes ...Flash) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(flashes) == 0 {
			return nil
		}
		if _, err := fmt.Fprintf(w, `<div id="%s" hx-swap-oob="%s">`, ToastsID, SwapBeforeEnd); err != nil {
			return err
		}
		for _, f := range flashes {
			if _, err := fmt.Fprintf(w, `<div class="toast toast-%s" data-auto-dismiss="%d">%s</div>`,
				templ.EscapeString(f.Level), DismissAfter, templ.EscapeString(f.Message)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

// ToastContainer renders the empty #toasts element. Layouts place it once,
// usually at the end of <body>.
func ToastContainer() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div id="%s" class="toast-container"></div>`, ToastsID)
		return err
	})
}
