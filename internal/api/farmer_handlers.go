package api

import (
	"net/http"

	"cropadvisor/domain/core"
	"cropadvisor/domain/farmer"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleSignup(c *gin.Context) {
	var reg farmer.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		s.respondError(c, core.NewInvalidInputError("body", err.Error()))
		return
	}
	f, err := s.farmers.Signup(c.Request.Context(), reg)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (s *Server) handleSignin(c *gin.Context) {
	var creds farmer.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		s.respondError(c, core.NewInvalidInputError("body", err.Error()))
		return
	}
	f, err := s.farmers.Signin(c.Request.Context(), creds)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) handleListFarmers(c *gin.Context) {
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		s.respondError(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	list, err := s.farmers.List(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"farmers": list, "count": len(list)})
}

func (s *Server) handleGetFarmer(c *gin.Context) {
	id, err := core.ParseFarmerID(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	f, err := s.farmers.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *Server) handleImportFarmers(c *gin.Context) {
	table, err := s.readUpload(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	summary, err := s.farmers.Import(c.Request.Context(), table)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
