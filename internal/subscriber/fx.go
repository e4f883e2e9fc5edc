package subscriber

import (
	"errors"

	"github.com/smallbiznis/subsync/internal/clock"
	"github.com/smallbiznis/subsync/internal/subscriber/domain"
	"github.com/smallbiznis/subsync/internal/subscriber/repository"
	"github.com/smallbiznis/subsync/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type StoreParams struct {
	fx.In

	Handle *db.Handle
	Clock  clock.Clock
	Log    *zap.Logger
}

// NewStore selects the store implementation backing subscriber records.
func NewStore(p StoreParams) (domain.Store, error) {
	if p.Handle == nil {
		return nil, errors.New("db handle not provided")
	}
	if p.Handle.Enabled() {
		return repository.NewGormStore(p.Handle.Gorm, p.Clock), nil
	}
	return repository.NewMemoryStore(p.Clock), nil
}

// Module wires the subscriber record store.
var Module = fx.Module("subscriber",
	fx.Provide(NewStore),
)
