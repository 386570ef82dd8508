package server

import (
	"strings"

	"github.com/airfieldhq/clubops/internal/actorcontext"
	"github.com/airfieldhq/clubops/internal/clubcontext"
	obscontext "github.com/airfieldhq/clubops/internal/observability/context"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// Identity headers supplied by the upstream auth layer; trusted, not
// re-validated here.
const (
	HeaderClub        = "X-Club-Id"
	HeaderMember      = "X-Member-Id"
	HeaderMemberEmail = "X-Member-Email"
	HeaderMemberName  = "X-Member-Name"
)

// ActorContext resolves the authenticated member from the trusted headers.
func ActorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderMember))
		if raw == "" {
			c.Next()
			return
		}

		memberID, err := snowflake.ParseString(raw)
		if err != nil || memberID == 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		actor := actorcontext.Actor{
			MemberID: memberID,
			Email:    strings.TrimSpace(c.GetHeader(HeaderMemberEmail)),
			Name:     strings.TrimSpace(c.GetHeader(HeaderMemberName)),
		}
		ctx := actorcontext.WithActor(c.Request.Context(), actor)
		ctx = obscontext.WithActor(ctx, "member", memberID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ClubContext scopes the request to the club named by the X-Club-Id header.
func ClubContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderClub))
		if raw == "" {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		clubID, err := snowflake.ParseString(raw)
		if err != nil || clubID == 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		ctx := clubcontext.WithClubID(c.Request.Context(), clubID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
