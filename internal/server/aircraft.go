package server

import (
	"net/http"

	aircraftdomain "github.com/airfieldhq/clubops/internal/aircraft/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) createAircraft(c *gin.Context) {
	var req aircraftdomain.CreateAircraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	aircraft, err := s.aircraftSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": aircraft})
}

func (s *Server) listAircraft(c *gin.Context) {
	fleet, err := s.aircraftSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": fleet})
}

func (s *Server) getAircraft(c *gin.Context) {
	aircraft, err := s.aircraftSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": aircraft})
}

func (s *Server) groundAircraft(c *gin.Context) {
	aircraft, err := s.aircraftSvc.Ground(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": aircraft})
}

func (s *Server) ungroundAircraft(c *gin.Context) {
	aircraft, err := s.aircraftSvc.Unground(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": aircraft})
}
