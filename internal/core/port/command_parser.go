package port

import (
	"context"

	"github.com/nvelasco/homeline/internal/core/domain"
)

// CommandParser turns free-form text into a structured update document.
// The production implementation calls an external language model; the
// conversion itself is a black box from the core's point of view.
type CommandParser interface {
	Parse(ctx context.Context, command string) (*domain.UpdateDocument, error)
}
