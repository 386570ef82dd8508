package server

import (
	"net/http"

	clubdomain "github.com/airfieldhq/clubops/internal/club/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) createClub(c *gin.Context) {
	var req clubdomain.CreateClubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	club, err := s.clubSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": club})
}

func (s *Server) addMember(c *gin.Context) {
	var req clubdomain.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	membership, err := s.clubSvc.AddMember(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": membership})
}
