package server

import (
	"net/http"
	"strings"

	accountdomain "github.com/airfieldhq/clubops/internal/account/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) createAccount(c *gin.Context) {
	var req accountdomain.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	account, err := s.accountSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": account})
}

func (s *Server) getAccount(c *gin.Context) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || memberID == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	account, err := s.accountSvc.GetByMemberID(c.Request.Context(), memberID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": account})
}

func (s *Server) grantCredit(c *gin.Context) {
	var req accountdomain.GrantCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.MemberID = c.Param("id")

	account, err := s.accountSvc.GrantCredit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": account})
}

func (s *Server) linkCustomer(c *gin.Context) {
	var req accountdomain.LinkCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.MemberID = c.Param("id")

	account, err := s.accountSvc.LinkCustomer(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": account})
}
