package zerolog

import (
	zl "github.com/rs/zerolog"

	"github.com/unkn0wn-root/regioncache"
)

var _ regioncache.Logger = Logger{}

type Logger struct{ L zl.Logger }

func (z Logger) Debug(msg string, f regioncache.Fields) { z.L.Debug().Fields(fields(f)).Msg(msg) }
func (z Logger) Info(msg string, f regioncache.Fields)  { z.L.Info().Fields(fields(f)).Msg(msg) }
func (z Logger) Warn(msg string, f regioncache.Fields)  { z.L.Warn().Fields(fields(f)).Msg(msg) }
func (z Logger) Error(msg string, f regioncache.Fields) { z.L.Error().Fields(fields(f)).Msg(msg) }

func fields(f regioncache.Fields) map[string]any {
	if len(f) == 0 {
		return nil
	}
	return map[string]any(f)
}
