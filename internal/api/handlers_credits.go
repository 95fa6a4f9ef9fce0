package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"studio/server/internal/model"
	"studio/server/internal/payment"

	"github.com/gin-gonic/gin"
)

const paymentWaitLimit = 30 * time.Second

type packageView struct {
	payment.Package
	PriceDisplay string `json:"price_display"`
}

func packageList() []packageView {
	out := make([]packageView, 0, len(payment.Packages))
	for _, p := range payment.Packages {
		out = append(out, packageView{Package: p, PriceDisplay: payment.FormatPrice(p.PriceCents)})
	}
	return out
}

type paymentView struct {
	model.PendingPayment
	PriceDisplay string `json:"price_display,omitempty"`
}

func viewPayment(p model.PendingPayment) paymentView {
	v := paymentView{PendingPayment: p}
	if p.State != model.PaymentClosed {
		v.PriceDisplay = payment.FormatPrice(p.PriceCents)
	}
	return v
}

func customRules() gin.H {
	return gin.H{
		"min_amount":       payment.MinCustomAmount,
		"max_amount":       payment.MaxCustomAmount,
		"cents_per_credit": payment.CustomCentsPerCredit,
	}
}

func (s *Server) getCredits(c *gin.Context) {
	sess := sessionFromContext(c)
	writeData(c, http.StatusOK, gin.H{
		"balance":      sess.Ledger.Balance(),
		"credit_costs": creditCosts(),
	})
}

func (s *Server) getLedger(c *gin.Context) {
	sess := sessionFromContext(c)
	entries := sess.Ledger.Entries()
	writeData(c, http.StatusOK, gin.H{
		"balance": sess.Ledger.Balance(),
		"entries": entries,
		"total":   len(entries),
	})
}

func (s *Server) getPackages(c *gin.Context) {
	writeData(c, http.StatusOK, gin.H{
		"packages": packageList(),
		"custom":   customRules(),
	})
}

type openPaymentRequest struct {
	Amount int64 `json:"amount" binding:"required"`
	Custom bool  `json:"custom"`
}

func (s *Server) openPayment(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var req openPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "amount is required", false, nil)
		return
	}
	sess := sessionFromContext(c)
	var (
		p   model.PendingPayment
		err error
	)
	if req.Custom {
		p, err = sess.Payments.OpenCustom(req.Amount)
	} else {
		p, err = sess.Payments.OpenPackage(req.Amount)
	}
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusCreated, viewPayment(p))
}

func (s *Server) currentPayment(c *gin.Context) {
	writeData(c, http.StatusOK, viewPayment(sessionFromContext(c).Payments.Current()))
}

func (s *Server) confirmPayment(c *gin.Context) {
	if !requireJSON(c) {
		return
	}
	var card payment.Card
	if err := c.ShouldBindJSON(&card); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid card payload", false, nil)
		return
	}
	sess := sessionFromContext(c)
	p, err := sess.Payments.Confirm(card)
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	if !wantsWait(c) {
		writeData(c, http.StatusAccepted, viewPayment(p))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), paymentWaitLimit)
	defer cancel()
	settled, err := sess.Payments.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			writeData(c, http.StatusAccepted, viewPayment(p))
			return
		}
		s.writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"payment": viewPayment(settled),
		"balance": sess.Ledger.Balance(),
	})
}

func (s *Server) cancelPayment(c *gin.Context) {
	sess := sessionFromContext(c)
	p, err := sess.Payments.Cancel()
	if err != nil {
		s.writeDomainError(c, err)
		return
	}
	writeData(c, http.StatusOK, gin.H{
		"payment": viewPayment(p),
		"balance": sess.Ledger.Balance(),
	})
}
