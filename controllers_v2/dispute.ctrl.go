package v2controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/responses"
	"github.com/sangini/invoicehub/lib/service"
)

// DisputeController : Invoice dispute controller struct
type DisputeController struct {
	svc *service.InvoicehubService
}

func NewDisputeController(svc *service.InvoicehubService) *DisputeController {
	return &DisputeController{svc: svc}
}

type Dispute struct {
	ID           int64       `json:"id"`
	InvoiceID    int64       `json:"invoice_id"`
	RaisedByID   int64       `json:"raised_by_id"`
	Reason       string      `json:"reason"`
	Resolution   string      `json:"resolution"`
	ClawedTokens money.Money `json:"clawed_tokens"`
	CreatedAt    time.Time   `json:"created_at"`
	ResolvedAt   *time.Time  `json:"resolved_at,omitempty"`
}

func newDisputeResponse(dispute *models.Dispute) Dispute {
	response := Dispute{
		ID:           dispute.ID,
		InvoiceID:    dispute.InvoiceID,
		RaisedByID:   dispute.RaisedByID,
		Reason:       dispute.Reason,
		Resolution:   dispute.Resolution,
		ClawedTokens: dispute.ClawedTokens,
		CreatedAt:    dispute.CreatedAt,
	}
	if !dispute.ResolvedAt.IsZero() {
		resolvedAt := dispute.ResolvedAt.Time
		response.ResolvedAt = &resolvedAt
	}
	return response
}

type RaiseDisputeRequestBody struct {
	Reason string `json:"reason" validate:"required"`
}

// RaiseDispute godoc
// @Summary      Dispute an invoice
// @Description  Buyer complaint. Freezes the invoice until an operator rules on it.
// @Accept       json
// @Produce      json
// @Tags         Dispute
// @Param        ref      path      string                   true  "Invoice id or invoice number"
// @Param        dispute  body      RaiseDisputeRequestBody  true  "Reason"
// @Success      200      {object}  Dispute
// @Failure      409      {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/dispute [post]
// @Security     OAuth2Password
func (controller *DisputeController) RaiseDispute(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	var body RaiseDisputeRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load dispute request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	dispute, err := controller.svc.RaiseDispute(c.Request().Context(), invoice.ID, userID, body.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newDisputeResponse(dispute))
}

// GetDispute godoc
// @Summary      Latest dispute on an invoice
// @Produce      json
// @Tags         Dispute
// @Param        ref  path      string  true  "Invoice id or invoice number"
// @Success      200  {object}  Dispute
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/dispute [get]
// @Security     OAuth2Password
func (controller *DisputeController) GetDispute(c echo.Context) error {
	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	dispute, err := controller.svc.FindDispute(c.Request().Context(), invoice.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newDisputeResponse(dispute))
}
