package shared

import (
	"net/http"

	"labadmin/internal/domain/affectation"
)

// WindowFromQuery reads the start/end activity-window query parameters.
// Malformed dates are recorded on the validator.
func WindowFromQuery(r *http.Request, v *Validator) affectation.Window {
	var window affectation.Window
	if raw := r.URL.Query().Get("start"); raw != "" {
		if parsed, ok := v.Date("start", raw); ok {
			window.Start = &parsed
		}
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		if parsed, ok := v.Date("end", raw); ok {
			window.End = &parsed
		}
	}
	return window
}
