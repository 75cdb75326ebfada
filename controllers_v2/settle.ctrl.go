package v2controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/responses"
	"github.com/sangini/invoicehub/lib/service"
)

// SettleController : Settlement and payout controller struct
type SettleController struct {
	svc *service.InvoicehubService
}

func NewSettleController(svc *service.InvoicehubService) *SettleController {
	return &SettleController{svc: svc}
}

type SettlementAmountResponseBody struct {
	InvoiceNum string      `json:"invoice_num"`
	Amount     money.Money `json:"amount"`
	Source     string      `json:"source"`
}

// GetSettlementAmount godoc
// @Summary      Amount owed at settlement
// @Description  Returns the buyer's current payoff, from the settlement oracle when reachable, otherwise accrued locally.
// @Produce      json
// @Tags         Settlement
// @Param        ref  path      string  true  "Invoice id or invoice number"
// @Success      200  {object}  SettlementAmountResponseBody
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/settlement-amount [get]
// @Security     OAuth2Password
func (controller *SettleController) GetSettlementAmount(c echo.Context) error {
	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	amount, source := controller.svc.SettlementAmount(c.Request().Context(), invoice)
	return c.JSON(http.StatusOK, &SettlementAmountResponseBody{
		InvoiceNum: invoice.InvoiceNum,
		Amount:     amount,
		Source:     source,
	})
}

type SettleRequestBody struct {
	PaymentAmount string `json:"payment_amount" validate:"required"`
}

type SettleResponseBody struct {
	Invoice       Invoice                `json:"invoice"`
	Distributions []service.Distribution `json:"distributions"`
}

// Settle godoc
// @Summary      Settle an invoice
// @Description  Applies the buyer's repayment and distributes it across current token holders pro rata.
// @Accept       json
// @Produce      json
// @Tags         Settlement
// @Param        ref      path      string             true  "Invoice id or invoice number"
// @Param        payment  body      SettleRequestBody  true  "Repayment amount"
// @Success      200      {object}  SettleResponseBody
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/settle [post]
// @Security     OAuth2Password
func (controller *SettleController) Settle(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	var body SettleRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load settle request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	paymentAmount, err := money.FromString(body.PaymentAmount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	settled, distributions, err := controller.svc.SettleInvoice(c.Request().Context(), invoice.ID, userID, paymentAmount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &SettleResponseBody{
		Invoice:       *newInvoiceResponse(settled),
		Distributions: distributions,
	})
}

type ClaimResponseBody struct {
	InvoiceID   int64       `json:"invoice_id"`
	ClaimAmount money.Money `json:"claim_amount"`
}

// ClaimInsurance godoc
// @Summary      Claim insurance on a defaulted invoice
// @Description  Pays the investor half of their acquired price basis out of the insurance pool, once per invoice.
// @Produce      json
// @Tags         Settlement
// @Param        ref  path      string  true  "Invoice id or invoice number"
// @Success      200  {object}  ClaimResponseBody
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/claim-insurance [post]
// @Security     OAuth2Password
func (controller *SettleController) ClaimInsurance(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	claim, err := controller.svc.ClaimInsurance(c.Request().Context(), invoice.ID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &ClaimResponseBody{
		InvoiceID:   claim.InvoiceID,
		ClaimAmount: claim.ClaimAmount,
	})
}
