package wrapper

import (
	"log/slog"
	"time"

	"github.com/dotcommander/wrapcrash/internal/metrics"
)

// Deps are the ambient collaborators shared by the writer, resolver and augmenter.
// Zero values are replaced by defaults.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}
