package components

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"liveqa/internal/viewmodel"
)

// PresenceFragment renders the participants badge for an event. The element
// id lets htmx swap it in place.
func PresenceFragment(data viewmodel.PresenceFragment) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w,
			`<div id="participants" class="participants" data-event-id="`+templ.EscapeString(data.EventID)+`">`+
				`<span class="participants-count">`+templ.EscapeString(data.Label())+`</span>`+
				`<span class="participants-live">`+strconv.Itoa(data.Connected)+` online</span>`+
				`</div>`)
		return err
	})
}
