package htmx

import "net/http"

// SwapMode is an hx-swap value.
type SwapMode string

// Swap modes used by hxcore fragments.
const (
	SwapOuter     SwapMode = "outerHTML"
	SwapBeforeEnd SwapMode = "beforeend"
	// SwapDelete drops the target; the response body is ignored.
	SwapDelete SwapMode = "delete"
)

// Reswap overrides the hx-swap of the element that issued the request.
func Reswap(w http.ResponseWriter, mode SwapMode) {
	w.Header().Set(HeaderReswap, string(mode))
}
