package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/betbot/gridwager/internal/domain"
	"github.com/betbot/gridwager/internal/rationale"
	"github.com/betbot/gridwager/internal/selector"
	"github.com/betbot/gridwager/internal/trading"
	"github.com/betbot/gridwager/pkg/sdk/apierrors"
)

type assessRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleAssess(c *gin.Context) {
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	c.JSON(http.StatusOK, rationale.Assess(req.Text))
}

type renderRequest struct {
	Template string            `json:"template"`
	Context  map[string]string `json:"context"`
}

type renderResponse struct {
	Text       string               `json:"text"`
	Assessment rationale.Assessment `json:"assessment"`
}

func (s *Server) handleRender(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Template == "" {
		req.Template = s.cfg.Defaults.Template
	}
	text := rationale.Render(req.Template, rationale.Context(req.Context))
	c.JSON(http.StatusOK, renderResponse{Text: text, Assessment: rationale.Assess(text)})
}

func (s *Server) handleStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": selector.Names()})
}

type betRequest struct {
	Asset       string            `json:"asset"`
	Amount      string            `json:"amount"`
	BalanceType string            `json:"balanceType"`
	Strategy    string            `json:"strategy"`
	Template    string            `json:"template"`
	Context     map[string]string `json:"context"`
}

func (s *Server) handleBetCreate(c *gin.Context) {
	var req betRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json body")
		return
	}
	order, err := s.orderFrom(req)
	if err != nil {
		writeError(c, statusFor(err), err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()
	res, err := s.cfg.Submitter.Submit(ctx, order)
	if err != nil {
		writeError(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) orderFrom(req betRequest) (trading.Order, error) {
	d := s.cfg.Defaults
	pick := func(v, def string) string {
		if strings.TrimSpace(v) != "" {
			return v
		}
		return def
	}

	amountText := pick(req.Amount, d.Amount)
	amount, err := decimal.NewFromString(strings.TrimSpace(amountText))
	if err != nil {
		return trading.Order{}, apierrors.Validationf("amount", "%q is not a decimal number", amountText)
	}
	pool, err := domain.ParseBalanceType(pick(req.BalanceType, d.BalanceType))
	if err != nil {
		return trading.Order{}, err
	}
	return trading.Order{
		Asset:       strings.ToUpper(pick(req.Asset, d.Asset)),
		Amount:      amount,
		BalanceType: pool,
		Strategy:    selector.Named(pick(req.Strategy, d.Strategy)),
		Template:    pick(req.Template, d.Template),
		Context:     rationale.Context(req.Context),
	}, nil
}

func (s *Server) handleBetsList(c *gin.Context) {
	if s.cfg.Journal == nil {
		writeError(c, http.StatusNotFound, "journal is disabled")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := s.cfg.Journal.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []domain.BetAttempt{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// statusFor 把错误分类映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case apierrors.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, apierrors.ErrNonceConflictPersisted):
		return http.StatusConflict
	case errors.Is(err, apierrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, apierrors.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
