package common

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusVerified  = "verified"
	InvoiceStatusFunding   = "funding"
	InvoiceStatusFunded    = "funded"
	InvoiceStatusSettled   = "settled"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusDefaulted = "defaulted"
	InvoiceStatusDisputed  = "disputed"
	InvoiceStatusRevoked   = "revoked"

	InvestmentStatePending    = "pending"
	InvestmentStateCompleted  = "completed"
	InvestmentStateError      = "error"
	InvestmentStateClawedBack = "clawed_back"

	DisputeResolutionPending = "pending"
	DisputeResolutionValid   = "valid"
	DisputeResolutionInvalid = "invalid"

	OrderStateOpen            = "open"
	OrderStatePartiallyFilled = "partially_filled"
	OrderStateFilled          = "filled"
	OrderStateCancelled       = "cancelled"

	RoleSupplier = "supplier"
	RoleBuyer    = "buyer"
	RoleInvestor = "investor"
	RoleAdmin    = "admin"

	// 10000 bps = 100%
	BpsDivisor = 10000

	// Insurance levy withheld from every supplier payment, in basis points.
	// Mirrors the on-chain contract and is not configurable per invoice.
	InsuranceCutBps = 200

	// Maximum auction discount a supplier may configure.
	MaxDiscountBps = 5000
)
