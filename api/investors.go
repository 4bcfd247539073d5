package api

import (
	"log"
	"net/http"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
	"github.com/etnz/tracker/renderer"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type investorRequest struct {
	Name            string          `json:"name" binding:"required"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	StartingBalance decimal.Decimal `json:"startingBalance"`
	Currency        string          `json:"currency"`
	JoinedOn        date.Date       `json:"joinedOn"`
	Status          tracker.Status  `json:"status"`
	Notes           string          `json:"notes"`
}

func (r investorRequest) investor(id string) tracker.Investor {
	return tracker.Investor{
		ID:              id,
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		StartingBalance: tracker.M(r.StartingBalance, r.Currency),
		JoinedOn:        r.JoinedOn,
		Status:          r.Status,
		Notes:           r.Notes,
	}
}

func bindInvestor(c *gin.Context, id string) (tracker.Investor, bool) {
	var req investorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return tracker.Investor{}, false
	}
	return req.investor(id), true
}

func (s *Server) listInvestors(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Investors())
}

func (s *Server) overview(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Overview())
}

func (s *Server) getInvestor(c *gin.Context) {
	inv, err := s.svc.Investor(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) addInvestor(c *gin.Context) {
	inv, ok := bindInvestor(c, "")
	if !ok {
		return
	}
	inv, err := s.svc.AddInvestor(c.Request.Context(), inv)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (s *Server) updateInvestor(c *gin.Context) {
	inv, ok := bindInvestor(c, c.Param("id"))
	if !ok {
		return
	}
	inv, err := s.svc.UpdateInvestor(c.Request.Context(), inv)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) deleteInvestor(c *gin.Context) {
	if err := s.svc.DeleteInvestor(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listInvestorEntries(c *gin.Context) {
	entries, err := s.svc.InvestorEntries(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) addInvestorEntry(c *gin.Context) {
	e, ok := bindEntry(c, "")
	if !ok {
		return
	}
	e, err := s.svc.AddInvestorEntry(c.Request.Context(), c.Param("id"), e)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *Server) updateInvestorEntry(c *gin.Context) {
	e, ok := bindEntry(c, c.Param("entryId"))
	if !ok {
		return
	}
	e, err := s.svc.UpdateInvestorEntry(c.Request.Context(), c.Param("id"), e)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) deleteInvestorEntry(c *gin.Context) {
	if err := s.svc.DeleteInvestorEntry(c.Request.Context(), c.Param("id"), c.Param("entryId")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) investorSummary(c *gin.Context) {
	sum, err := s.svc.InvestorSummary(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// investorReport renders the report of an investor as markdown, or as HTML
// with format=html. comment=true asks the commentator for a commentary.
func (s *Server) investorReport(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	inv, err := s.svc.Investor(id)
	if err != nil {
		fail(c, err)
		return
	}
	sum, err := s.svc.InvestorSummary(id)
	if err != nil {
		fail(c, err)
		return
	}
	rows, err := s.svc.InvestorStatement(id)
	if err != nil {
		fail(c, err)
		return
	}
	report := &renderer.InvestorReport{
		Investor:    inv,
		Summary:     sum,
		Rows:        rows,
		GeneratedOn: date.Today(),
	}
	if c.Query("comment") == "true" && s.commentator != nil {
		comment, err := s.commentator.Comment(ctx, inv.Name, sum, rows)
		if err != nil {
			// the report is still useful without it
			log.Printf("report-comment-failed investor=%s err=%v", id, err)
		}
		report.Comment = comment
	}

	md := renderer.RenderInvestorReport(report)
	if c.Query("format") != "html" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}
	html, err := renderer.HTML(md)
	if err != nil {
		fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
