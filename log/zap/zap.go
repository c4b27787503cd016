// Package zap adapts go.uber.org/zap to the regioncache Logger interface.
package zap

import (
	"github.com/unkn0wn-root/regioncache"
	"go.uber.org/zap"
)

type Logger struct{ L *zap.Logger }

var _ regioncache.Logger = Logger{}

func (z Logger) Debug(msg string, f regioncache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f regioncache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f regioncache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f regioncache.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f regioncache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
