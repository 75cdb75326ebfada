package v2controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sangini/invoicehub/db/models"
	"github.com/sangini/invoicehub/lib/money"
	"github.com/sangini/invoicehub/lib/responses"
	"github.com/sangini/invoicehub/lib/service"
)

// OrderController : Secondary-market order book controller struct
type OrderController struct {
	svc *service.InvoicehubService
}

func NewOrderController(svc *service.InvoicehubService) *OrderController {
	return &OrderController{svc: svc}
}

type SellOrder struct {
	ID              int64       `json:"id"`
	OrderNum        string      `json:"order_num"`
	InvoiceID       int64       `json:"invoice_id"`
	SellerID        int64       `json:"seller_id"`
	TokenAmount     money.Money `json:"token_amount"`
	PricePerToken   money.Money `json:"price_per_token"`
	TokensRemaining money.Money `json:"tokens_remaining"`
	State           string      `json:"state"`
}

func newOrderResponse(order *models.SellOrder) SellOrder {
	return SellOrder{
		ID:              order.ID,
		OrderNum:        order.OrderNum,
		InvoiceID:       order.InvoiceID,
		SellerID:        order.SellerID,
		TokenAmount:     order.TokenAmount,
		PricePerToken:   order.PricePerToken,
		TokensRemaining: order.TokensRemaining,
		State:           order.State,
	}
}

type CreateOrderRequestBody struct {
	InvoiceRef    string `json:"invoice_ref" validate:"required"`
	TokenAmount   string `json:"token_amount" validate:"required"`
	PricePerToken string `json:"price_per_token" validate:"required"`
}

// CreateOrder godoc
// @Summary      List tokens for sale
// @Description  Creates a sell order against the seller's available balance on the invoice.
// @Accept       json
// @Produce      json
// @Tags         Orders
// @Param        order  body      CreateOrderRequestBody  true  "Create Order"
// @Success      200    {object}  SellOrder
// @Failure      400    {object}  responses.ErrorResponse
// @Router       /v2/orders [post]
// @Security     OAuth2Password
func (controller *OrderController) CreateOrder(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	var body CreateOrderRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create order request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	tokenAmount, err := money.FromString(body.TokenAmount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	pricePerToken, err := money.FromString(body.PricePerToken)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), body.InvoiceRef)
	if err != nil {
		return err
	}
	order, err := controller.svc.CreateSellOrder(c.Request().Context(), invoice.ID, userID, tokenAmount, pricePerToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newOrderResponse(order))
}

type FillOrderRequestBody struct {
	TokenAmount string `json:"token_amount" validate:"required"`
}

type FillOrderResponseBody struct {
	Order         SellOrder   `json:"order"`
	TokensBought  money.Money `json:"tokens_bought"`
	PaymentAmount money.Money `json:"payment_amount"`
}

// FillOrder godoc
// @Summary      Fill a sell order
// @Description  Buys tokens from an open order at the listed price. Partial fills keep the order open.
// @Accept       json
// @Produce      json
// @Tags         Orders
// @Param        id    path      int                   true  "Order id"
// @Param        fill  body      FillOrderRequestBody  true  "Token amount"
// @Success      200   {object}  FillOrderResponseBody
// @Failure      400   {object}  responses.ErrorResponse
// @Failure      409   {object}  responses.ErrorResponse
// @Router       /v2/orders/{id}/fill [post]
// @Security     OAuth2Password
func (controller *OrderController) FillOrder(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body FillOrderRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load fill order request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	tokenAmount, err := money.FromString(body.TokenAmount)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	result, err := controller.svc.FillOrder(c.Request().Context(), orderID, userID, tokenAmount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &FillOrderResponseBody{
		Order:         newOrderResponse(result.Order),
		TokensBought:  result.Transfer.Amount,
		PaymentAmount: result.Transfer.PaymentAmount,
	})
}

// CancelOrder godoc
// @Summary      Cancel a sell order
// @Description  Withdraws the unfilled remainder of the seller's own order.
// @Produce      json
// @Tags         Orders
// @Param        id  path      int  true  "Order id"
// @Success      200  {object}  SellOrder
// @Failure      403  {object}  responses.ErrorResponse
// @Failure      409  {object}  responses.ErrorResponse
// @Router       /v2/orders/{id}/cancel [post]
// @Security     OAuth2Password
func (controller *OrderController) CancelOrder(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	order, err := controller.svc.CancelOrder(c.Request().Context(), orderID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newOrderResponse(order))
}

// GetOrder godoc
// @Summary      Retrieve one order
// @Produce      json
// @Tags         Orders
// @Param        id  path      int  true  "Order id"
// @Success      200  {object}  SellOrder
// @Failure      404  {object}  responses.ErrorResponse
// @Router       /v2/orders/{id} [get]
// @Security     OAuth2Password
func (controller *OrderController) GetOrder(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	order, err := controller.svc.FindOrder(c.Request().Context(), orderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newOrderResponse(order))
}

type GetOrdersResponseBody struct {
	Orders []SellOrder `json:"orders"`
}

// GetInvoiceOrders godoc
// @Summary      Open orders on an invoice
// @Description  Fillable orders for the invoice, cheapest first.
// @Produce      json
// @Tags         Orders
// @Param        ref  path      string  true  "Invoice id or invoice number"
// @Success      200  {object}  GetOrdersResponseBody
// @Router       /v2/invoices/{ref}/orders [get]
// @Security     OAuth2Password
func (controller *OrderController) GetInvoiceOrders(c echo.Context) error {
	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	orders, err := controller.svc.OpenOrdersFor(c.Request().Context(), invoice.ID)
	if err != nil {
		return err
	}
	response := make([]SellOrder, len(orders))
	for i, order := range orders {
		response[i] = newOrderResponse(&order)
	}
	return c.JSON(http.StatusOK, &GetOrdersResponseBody{Orders: response})
}

// GetOrders godoc
// @Summary      Retrieve own orders
// @Produce      json
// @Tags         Orders
// @Success      200  {object}  GetOrdersResponseBody
// @Router       /v2/orders [get]
// @Security     OAuth2Password
func (controller *OrderController) GetOrders(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	orders, err := controller.svc.OrdersForSeller(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	response := make([]SellOrder, len(orders))
	for i, order := range orders {
		response[i] = newOrderResponse(&order)
	}
	return c.JSON(http.StatusOK, &GetOrdersResponseBody{Orders: response})
}

type TransferRequestBody struct {
	ToUserID    int64  `json:"to_user_id" validate:"required"`
	TokenAmount string `json:"token_amount" validate:"required"`
}

type TransferResponseBody struct {
	InvoiceID  int64       `json:"invoice_id"`
	FromUserID int64       `json:"from_user_id"`
	ToUserID   int64       `json:"to_user_id"`
	Amount     money.Money `json:"amount"`
}

// Transfer godoc
// @Summary      Transfer tokens directly
// @Description  Moves tokens to another holder outside the order book, without payment.
// @Accept       json
// @Produce      json
// @Tags         Orders
// @Param        ref       path      string               true  "Invoice id or invoice number"
// @Param        transfer  body      TransferRequestBody  true  "Recipient and amount"
// @Success      200       {object}  TransferResponseBody
// @Failure      400       {object}  responses.ErrorResponse
// @Router       /v2/invoices/{ref}/transfer [post]
// @Security     OAuth2Password
func (controller *OrderController) Transfer(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	var body TransferRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load transfer request body: %v", err)
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
	transfer, err := controller.svc.TransferTokens(c.Request().Context(), invoice.ID, userID, body.ToUserID, tokenAmount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &TransferResponseBody{
		InvoiceID:  transfer.InvoiceID,
		FromUserID: transfer.FromUserID,
		ToUserID:   transfer.ToUserID,
		Amount:     transfer.Amount,
	})
}

type AvailabilityResponseBody struct {
	InvoiceNum string      `json:"invoice_num"`
	Available  money.Money `json:"available"`
}

// GetAvailability godoc
// @Summary      Listable token balance
// @Description  The caller's currently listable tokens on the invoice, after open listings and past transfers.
// @Produce      json
// @Tags         Orders
// @Param        ref  path      string  true  "Invoice id or invoice number"
// @Success      200  {object}  AvailabilityResponseBody
// @Router       /v2/invoices/{ref}/availability [get]
// @Security     OAuth2Password
func (controller *OrderController) GetAvailability(c echo.Context) error {
	userID := c.Get("UserID").(int64)

	invoice, _, err := controller.svc.ResolveInvoice(c.Request().Context(), c.Param("ref"))
	if err != nil {
		return err
	}
	available, err := controller.svc.AvailableTokens(c.Request().Context(), invoice.ID, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &AvailabilityResponseBody{
		InvoiceNum: invoice.InvoiceNum,
		Available:  available,
	})
}
