package clubcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ClubContextKey is the request context key for the active club ID.
type ClubContextKey struct{}

// WithClubID stores the club ID in the context.
func WithClubID(ctx context.Context, clubID snowflake.ID) context.Context {
	return context.WithValue(ctx, ClubContextKey{}, clubID)
}

// ClubIDFromContext returns the club ID from context, if set.
func ClubIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	value := ctx.Value(ClubContextKey{})
	if value == nil {
		return 0, false
	}
	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}
