package server

import (
	"net/http"

	"github.com/airfieldhq/clubops/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) runBilling(c *gin.Context) {
	result, err := s.billingSvc.RunCycle(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) listBillingRuns(c *gin.Context) {
	runs, err := s.billingSvc.ListRuns(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}

func (s *Server) getBillingRun(c *gin.Context) {
	run, err := s.billingSvc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": run})
}

func (s *Server) listInvoices(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	invoices, info, err := s.billingSvc.ListInvoices(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices, "page_info": info})
}

func (s *Server) getInvoice(c *gin.Context) {
	detail, err := s.billingSvc.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) retryInvoice(c *gin.Context) {
	invoice, err := s.billingSvc.RetryInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}
