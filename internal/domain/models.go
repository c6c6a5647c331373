package domain

import "time"

// Payment methods accepted at checkout.
const (
	PaymentCash        = "cash"
	PaymentMobileMoney = "mobile-money"
	PaymentCard        = "card"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// DefaultLowStockThreshold applies until an admin configures one.
const DefaultLowStockThreshold = 10

type Medicine struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type MedicineCreateRequest struct {
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

type MedicineUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	UnitPriceCents *int64  `json:"unit_price_cents,omitempty"`
	Quantity       *int    `json:"quantity,omitempty"`
}

type Supplier struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Company       string    `json:"company"`
	Address       string    `json:"address"`
	CreatedAt     time.Time `json:"created_at"`
}

type SupplierCreateRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Company       string `json:"company"`
	Address       string `json:"address"`
}

type SupplierUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	ContactPerson *string `json:"contact_person,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Email         *string `json:"email,omitempty"`
	Company       *string `json:"company,omitempty"`
	Address       *string `json:"address,omitempty"`
}

// IntakeBatch is a recorded stock delivery from a supplier. Quantity is the
// remaining (not yet synced) amount; syncing moves units into the medicine
// store and reduces it.
type IntakeBatch struct {
	ID             string    `json:"id"`
	SupplierID     string    `json:"supplier_id"`
	ProductName    string    `json:"product_name"`
	BatchNumber    string    `json:"batch_number"`
	Quantity       int       `json:"quantity"`
	UnitCostCents  int64     `json:"unit_cost_cents"`
	TotalCostCents int64     `json:"total_cost_cents"`
	ExpiryDate     time.Time `json:"expiry_date"`
	CreatedAt      time.Time `json:"created_at"`
}

type IntakeBatchCreateRequest struct {
	SupplierID    string `json:"supplier_id"`
	ProductName   string `json:"product_name"`
	BatchNumber   string `json:"batch_number"`
	Quantity      int    `json:"quantity"`
	UnitCostCents int64  `json:"unit_cost_cents"`
	ExpiryDate    string `json:"expiry_date"`
}

type IntakeSyncRequest struct {
	Quantity int `json:"quantity"`
}

type IntakeSyncResponse struct {
	Batch    IntakeBatch `json:"batch"`
	Medicine Medicine    `json:"medicine"`
	Created  bool        `json:"created"`
}

type CartLine struct {
	MedicineID string `json:"medicine_id"`
	Qty        int    `json:"qty"`
}

type CheckoutRequest struct {
	CartLines     []CartLine `json:"cart_lines"`
	PaymentMethod string     `json:"payment_method"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
}

type SaleItem struct {
	MedicineID      string `json:"medicine_id"`
	MedicineName    string `json:"medicine_name"`
	Qty             int    `json:"qty"`
	UnitPriceCents  int64  `json:"unit_price_cents"`
	TotalPriceCents int64  `json:"total_price_cents"`
}

type Sale struct {
	ID               string     `json:"id"`
	SaleNumber       string     `json:"sale_number"`
	CashierUsername  string     `json:"cashier_username"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	PaymentMethod    string     `json:"payment_method"`
	CustomerName     string     `json:"customer_name,omitempty"`
	CustomerPhone    string     `json:"customer_phone,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	Items            []SaleItem `json:"items"`
}

type CheckoutResponse struct {
	Sale      Sale `json:"sale"`
	ItemCount int  `json:"item_count"`
}

// LowStockEvent records a downward threshold crossing observed inside the
// unit of work that changed the quantity.
type LowStockEvent struct {
	MedicineID string
	Name       string
	Quantity   int
}

type Settings struct {
	AlertPhone        string    `json:"alert_phone"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type SettingsUpdateRequest struct {
	AlertPhone        *string `json:"alert_phone,omitempty"`
	LowStockThreshold *int    `json:"low_stock_threshold,omitempty"`
}

type DailyReportPayment struct {
	PaymentMethod string `json:"payment_method"`
	Sales         int64  `json:"sales"`
	TotalCents    int64  `json:"total_cents"`
}

type DailyReport struct {
	Date            string               `json:"date"`
	Sales           int64                `json:"sales"`
	GrossSalesCents int64                `json:"gross_sales_cents"`
	ByPayment       []DailyReportPayment `json:"by_payment"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// CredentialUpdateRequest atomically rewrites a user's identifier and
// secret, looked up by the old identifier.
type CredentialUpdateRequest struct {
	OldUsername string `json:"old_username"`
	NewUsername string `json:"new_username"`
	NewPassword string `json:"new_password"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

func IsSupportedPaymentMethod(method string) bool {
	switch method {
	case PaymentCash, PaymentMobileMoney, PaymentCard:
		return true
	}
	return false
}
