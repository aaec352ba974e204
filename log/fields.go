package log

import "go.uber.org/zap"

var (
	String     = zap.String
	Strings    = zap.Strings
	Int        = zap.Int
	Int32      = zap.Int32
	Uint       = zap.Uint
	Float      = zap.Float64
	Bool       = zap.Bool
	Duration   = zap.Duration
	Time       = zap.Time
	Any        = zap.Any
	ErrorField = zap.Error
)
