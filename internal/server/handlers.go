package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vincentbai/browsetrace-server/internal/ingest"
	"github.com/vincentbai/browsetrace-server/internal/snapshots"
)

func (s *Server) handleHealthz(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		s.log.Error("health check failed", "error", err)
		c.String(http.StatusServiceUnavailable, "database unavailable")
		return
	}
	c.String(http.StatusOK, "ok")
}

// The save endpoints always answer 200; outcomes travel in the body.
func (s *Server) handleSaveUser(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	res := s.dispatcher.RegisterUser(s.db.Session(c.Request.Context()), body)
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSaveData(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	req, err := ingest.DecodeRequest(body)
	if err != nil {
		s.log.Warn("rejected save_data payload", "error", err)
		c.JSON(http.StatusOK, ingest.Failure("error saving data: "+err.Error()))
		return
	}
	res := s.dispatcher.Dispatch(s.db.Session(c.Request.Context()), req)
	c.JSON(http.StatusOK, res)
}

type searchTermsRequest struct {
	RequestKey string `json:"request_key"`
}

func (s *Server) handleSearchTerms(c *gin.Context) {
	var req searchTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RequestKey != snapshots.RequestKey {
		c.JSON(http.StatusOK, ingest.Failure("unknown request key"))
		return
	}
	c.JSON(http.StatusOK, s.terms.URLs())
}

func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.log.Warn("failed to read request body", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusOK, ingest.Failure("error reading request body"))
		return nil, false
	}
	return body, true
}
