package enums

// SubscriptionStatus tracks the billing state of a tenant account.
type SubscriptionStatus string

const (
	SubscriptionTrial    SubscriptionStatus = "trial"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionExpired, SubscriptionCanceled:
		return true
	}
	return false
}

// Blocked reports whether the status shuts out non-superadmin requests.
func (s SubscriptionStatus) Blocked() bool {
	return s == SubscriptionExpired || s == SubscriptionCanceled
}

// SaleStatus is the lifecycle of a sale aggregate.
type SaleStatus string

const (
	SalePending   SaleStatus = "pendiente"
	SaleCompleted SaleStatus = "completada"
	SaleCanceled  SaleStatus = "cancelada"
)

// PaymentStatus tracks credit-sale collection progress.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pendiente"
	PaymentPartial PaymentStatus = "parcial"
	PaymentPaid    PaymentStatus = "pagado"
)

// PaymentMethod is how a sale was paid.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "efectivo"
	MethodCard     PaymentMethod = "tarjeta"
	MethodTransfer PaymentMethod = "transferencia"
	MethodCredit   PaymentMethod = "credito"
)

// SaleOrigin distinguishes in-person sales from public storefront orders.
type SaleOrigin string

const (
	OriginPOS SaleOrigin = "pos"
	OriginWeb SaleOrigin = "web"
)

// MemberRole is the operator-facing role on a user profile.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleSeller MemberRole = "vendedor"
)

func (r MemberRole) IsValid() bool {
	return r == RoleAdmin || r == RoleSeller
}

// PurchaseOrderStatus is the lifecycle of a supplier purchase order.
type PurchaseOrderStatus string

const (
	PurchasePending  PurchaseOrderStatus = "pendiente"
	PurchaseReceived PurchaseOrderStatus = "recibida"
	PurchaseCanceled PurchaseOrderStatus = "cancelada"
)

// MovementType classifies inventory movement log entries.
type MovementType string

const (
	MovementSale       MovementType = "venta"
	MovementPurchase   MovementType = "compra"
	MovementAdjustment MovementType = "ajuste"
)

// TransactionType classifies gateway payment transactions.
type TransactionType string

const (
	TransactionSubscription TransactionType = "SUB"
	TransactionAddon        TransactionType = "ADDON"
	TransactionWebOrder     TransactionType = "ORDER"
)
