package v2controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/responses"
	"github.com/sangini/invoicehub/lib/service"
)

// AuctionController : Dutch auction controller struct
type AuctionController struct {
	svc *service.InvoicehubService
}

func NewAuctionController(svc *service.InvoicehubService) *AuctionController {
	return &AuctionController{svc: svc}
}

type StartAuctionRequestBody struct {
	DurationHours  int64 `json:"duration_hours" validate:"required,gt=0"`
	MaxDiscountBps int64 `json:"max_discount_bps" validate:"required,gt=0"`
}

// StartAuction godoc
// @Summary      Start the funding auction
// @Description  Opens a verified invoice for funding. The price decays from face value toward the discount floor by whole elapsed hours.
// @Accept       json
// @Produce      json
// @Tags         Auction
// @Param        ref      path      string                   true  "Invoice id or invoice number"
// @Param        auction  body      StartAuctionRequestBody  true  "Auction parameters"
// @Success      200      {object}  Invoice
// @Failure      400      {object}  responses.ErrorResponse
// @Failure      409      {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/auction [post]
// @Security     OAuth2Password
func (controller *AuctionController) StartAuction(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	var body StartAuctionRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load start auction request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	invoice, err = controller.svc.StartAuction(c.Request().Context(), invoice.ID, userID, body.DurationHours, body.MaxDiscountBps)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInvoiceResponse(invoice))
}

type PriceResponseBody struct {
	InvoiceNum       string      `json:"invoice_num"`
	Price            money.Money `json:"price"`
	DiscountBps      int64       `json:"discount_bps"`
	ProgressPct      int64       `json:"progress_pct"`
	TimeRemainingSec int64       `json:"time_remaining_sec"`
	IsActive         bool        `json:"is_active"`
}

// GetPrice godoc
// @Summary      Current auction price
// @Description  Re-derives the invoice's auction quote from wall-clock time. Public, cacheable for a few seconds.
// @Produce      json
// @Tags         Auction
// @Param        ref  path      string  true  "Invoice id or invoice number"
// @Success      200  {object}  PriceResponseBody
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/price [get]
func (controller *AuctionController) GetPrice(c echo.Context) error {
	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	info, err := controller.svc.CurrentPrice(invoice, time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &PriceResponseBody{
		InvoiceNum:       invoice.InvoiceNum,
		Price:            info.Price,
		DiscountBps:      info.DiscountBps,
		ProgressPct:      info.ProgressPct,
		TimeRemainingSec: int64(info.TimeRemaining / time.Second),
		IsActive:         info.IsActive,
	})
}
