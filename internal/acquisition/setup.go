package acquisition

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/a3drift/internal/instrument"
)

// InitCommands reset the DMM to a known state with ASCII output before a
// campaign starts.
var InitCommands = []string{"RESET", "END ALWAYS", "PRESET NORM", "OFORMAT ASCII"}

// Setup opens a session, initialises the instrument and returns its identity.
// The session is closed before Setup returns.
func Setup(ctx context.Context, dialer instrument.Dialer) (id string, err error) {
	session, err := dialer.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("open instrument: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close instrument: %w", cerr)
		}
	}()

	for _, cmd := range InitCommands {
		if err := instrument.Command(ctx, session, cmd); err != nil {
			return "", fmt.Errorf("initialise instrument: %w", err)
		}
	}

	id, err = instrument.Query(ctx, session, "ID?")
	if err != nil {
		return "", fmt.Errorf("identify instrument: %w", err)
	}
	return strings.TrimSpace(id), nil
}
