package incidents

import (
	"strings"

	"github.com/SoloAWS/incident-command-service/core/apperr"
	"github.com/SoloAWS/incident-command-service/core/store"
)

// normalizeEnum turns "IncidentChannel.PHONE " into "phone".
func normalizeEnum(raw string) string {
	v := raw
	if idx := strings.LastIndex(v, "."); idx >= 0 {
		v = v[idx+1:]
	}
	return strings.ToLower(strings.TrimSpace(v))
}

func ParseState(raw string) (store.IncidentState, error) {
	v := normalizeEnum(raw)
	for _, s := range store.IncidentStates {
		if string(s) == v {
			return s, nil
		}
	}
	return "", apperr.InvalidEnum("state", raw)
}

func ParseChannel(raw string) (store.IncidentChannel, error) {
	v := normalizeEnum(raw)
	for _, c := range store.IncidentChannels {
		if string(c) == v {
			return c, nil
		}
	}
	return "", apperr.InvalidEnum("channel", raw)
}

func ParsePriority(raw string) (store.IncidentPriority, error) {
	v := normalizeEnum(raw)
	for _, p := range store.IncidentPriorities {
		if string(p) == v {
			return p, nil
		}
	}
	return "", apperr.InvalidEnum("priority", raw)
}

func parseOptional[T any](raw string, def T, parse func(string) (T, error)) (T, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return parse(raw)
}
