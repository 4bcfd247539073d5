package api

import (
	"fmt"
	"net/http"

	"github.com/etnz/tracker"
	"github.com/etnz/tracker/date"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// entryRequest is the DTO of an entry. Amounts are numbers or decimal strings.
type entryRequest struct {
	Month       string          `json:"month" binding:"required"`
	Growth      decimal.Decimal `json:"growth"`
	Deposits    decimal.Decimal `json:"deposits"`
	Withdrawals decimal.Decimal `json:"withdrawals"`
	Currency    string          `json:"currency"`
	Note        string          `json:"note"`
}

func (r entryRequest) entry(id string) (tracker.Entry, error) {
	m, err := date.ParseMonth(r.Month)
	if err != nil {
		return tracker.Entry{}, fmt.Errorf("%w entry: %v", tracker.ErrInvalid, err)
	}
	return tracker.Entry{
		ID:          id,
		Month:       m,
		Growth:      tracker.M(r.Growth, r.Currency),
		Deposits:    tracker.M(r.Deposits, r.Currency),
		Withdrawals: tracker.M(r.Withdrawals, r.Currency),
		Note:        r.Note,
	}, nil
}

// bindEntry decodes the request body into an entry.
func bindEntry(c *gin.Context, id string) (tracker.Entry, bool) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return tracker.Entry{}, false
	}
	e, err := req.entry(id)
	if err != nil {
		fail(c, err)
		return tracker.Entry{}, false
	}
	return e, true
}

func (s *Server) listEntries(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Entries())
}

func (s *Server) addEntry(c *gin.Context) {
	e, ok := bindEntry(c, "")
	if !ok {
		return
	}
	e, err := s.svc.AddEntry(c.Request.Context(), e)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *Server) updateEntry(c *gin.Context) {
	e, ok := bindEntry(c, c.Param("id"))
	if !ok {
		return
	}
	e, err := s.svc.UpdateEntry(c.Request.Context(), e)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) deleteEntry(c *gin.Context) {
	if err := s.svc.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// summary returns the summary of the whole book, with a breakdown when a
// period is requested.
func (s *Server) summary(c *gin.Context) {
	res := gin.H{"summary": s.svc.Summary()}
	if p := c.Query("period"); p != "" {
		period, err := date.ParsePeriod(p)
		if err != nil {
			badRequest(c, err)
			return
		}
		res["breakdown"] = s.svc.Breakdown(period)
	}
	c.JSON(http.StatusOK, res)
}

type balanceRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (s *Server) startingBalance(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.StartingBalance())
}

func (s *Server) setStartingBalance(c *gin.Context) {
	var req balanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.svc.SetStartingBalance(c.Request.Context(), tracker.M(req.Amount, req.Currency)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.svc.StartingBalance())
}
