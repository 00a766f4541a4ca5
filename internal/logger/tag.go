package logger

// Scoped prefixes every entry with the route or component that produced it,
// e.g. "FAL Route", as a "scope" field.
type Scoped struct {
	scope string
}

func Tag(scope string) Scoped {
	return Scoped{scope: scope}
}

func (s Scoped) Debug(format string, args ...interface{}) {
	get().Debug().Str("scope", s.scope).Msgf(format, args...)
}

func (s Scoped) Info(format string, args ...interface{}) {
	get().Info().Str("scope", s.scope).Msgf(format, args...)
}

func (s Scoped) Warn(format string, args ...interface{}) {
	get().Warn().Str("scope", s.scope).Msgf(format, args...)
}

func (s Scoped) Error(format string, args ...interface{}) {
	get().Error().Str("scope", s.scope).Msgf(format, args...)
}
