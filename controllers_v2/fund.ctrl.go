package v2controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/responses"
	"github.com/sangini/invoicehub/lib/service"
)

// FundController : Funding ledger controller struct
type FundController struct {
	svc *service.InvoicehubService
}

func NewFundController(svc *service.InvoicehubService) *FundController {
	return &FundController{svc: svc}
}

type FundRequestBody struct {
	TokenAmount string `json:"token_amount" validate:"required"`
	TxRef       string `json:"tx_ref" validate:"required"`
}

type Investment struct {
	ID            int64       `json:"id"`
	ExternalID    string      `json:"external_id"`
	InvoiceID     int64       `json:"invoice_id"`
	TokenAmount   money.Money `json:"token_amount"`
	PaymentAmount money.Money `json:"payment_amount"`
	ClearingPrice money.Money `json:"clearing_price"`
	DiscountBps   int64       `json:"discount_bps"`
	TxRef         string      `json:"tx_ref"`
	State         string      `json:"state"`
}

func newInvestmentResponse(investment *models.Investment) Investment {
	return Investment{
		ID:            investment.ID,
		ExternalID:    investment.ExternalID,
		InvoiceID:     investment.InvoiceID,
		TokenAmount:   investment.TokenAmount,
		PaymentAmount: investment.PaymentAmount,
		ClearingPrice: investment.ClearingPrice,
		DiscountBps:   investment.DiscountBps,
		TxRef:         investment.TxRef,
		State:         investment.State,
	}
}

type FundResponseBody struct {
	Investment Investment `json:"investment"`
	Invoice    Invoice    `json:"invoice"`
	Replayed   bool       `json:"replayed"`
}

// Fund godoc
// @Summary      Fund an invoice
// @Description  Buy tokens at the current auction price. Retries with the same tx_ref replay the original result without a second debit.
// @Accept       json
// @Produce      json
// @Tags         Funding
// @Param        ref      path      string           true  "Invoice id or invoice number"
// @Param        funding  body      FundRequestBody  true  "Token amount and settlement reference"
// @Success      200      {object}  FundResponseBody
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/fund [post]
// @Security     OAuth2Password
func (controller *FundController) Fund(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	var body FundRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load fund request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	tokenAmount, err := money.FromString(body.TokenAmount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	result, err := controller.svc.FundInvoice(c.Request().Context(), invoice.ID, userID, tokenAmount, body.TxRef)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &FundResponseBody{
		Investment: newInvestmentResponse(result.Investment),
		Invoice:    *newInvoiceResponse(result.Invoice),
		Replayed:   result.Replayed,
	})
}

type GetInvestmentsResponseBody struct {
	Investments []Investment `json:"investments"`
}

// GetInvestments godoc
// @Summary      Retrieve own investments
// @Produce      json
// @Tags         Funding
// @Success      200  {object}  GetInvestmentsResponseBody
// @Router       /v2/investments [get]
// @Security     OAuth2Password
func (controller *FundController) GetInvestments(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	investments, err := controller.svc.InvestmentsFor(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	response := make([]Investment, len(investments))
	for i, investment := range investments {
		response[i] = newInvestmentResponse(&investment)
	}
	return c.JSON(http.StatusOK, &GetInvestmentsResponseBody{Investments: response})
}

// GetInvoiceInvestments godoc
// @Summary      Confirmed investments on an invoice
// @Description  Only the invoice's supplier or buyer can see its funding history.
// @Produce      json
// @Tags         Funding
// @Param        ref  path      string  true  "Invoice id or invoice number"
// @Success      200  {object}  GetInvestmentsResponseBody
// @Failure      403  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/investments [get]
// @Security     OAuth2Password
func (controller *FundController) GetInvoiceInvestments(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	if invoice.SupplierID != userID && invoice.BuyerID != userID {
		return c.JSON(http.StatusForbidden, responses.BadAuthError)
	}
	investments, err := controller.svc.InvestmentsForInvoice(c.Request().Context(), invoice.ID)
	if err != nil {
		return err
	}
	response := make([]Investment, len(investments))
	for i, investment := range investments {
		response[i] = newInvestmentResponse(&investment)
	}
	return c.JSON(http.StatusOK, &GetInvestmentsResponseBody{Investments: response})
}
