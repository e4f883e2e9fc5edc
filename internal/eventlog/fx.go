package eventlog

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/subsync/internal/eventlog/domain"
	"github.com/smallbiznis/subsync/internal/eventlog/repository"
	"github.com/smallbiznis/subsync/pkg/db"
)

// NewJournal selects the journal implementation backing the event log.
func NewJournal(handle *db.Handle) domain.Journal {
	if handle.Enabled() {
		return repository.NewGormJournal(handle.Gorm)
	}
	return repository.NewMemoryJournal()
}

// Module wires the webhook event journal.
var Module = fx.Module("eventlog",
	fx.Provide(NewJournal),
)
