package policy

import "github.com/254Kioko/chemist-mgs/internal/domain"

// Resources covered by the capability matrix.
const (
	ResourceMedicine = "medicine"
	ResourceSupplier = "supplier"
	ResourceIntake   = "intake"
	ResourceSale     = "sale"
	ResourceReport   = "report"
	ResourceSettings = "settings"
	ResourceAudit    = "audit"
	ResourceUser     = "user"
)

const (
	ActionRead        = "read"
	ActionCreate      = "create"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionSync        = "sync"
	ActionAdjustStock = "adjust_stock"
)

type capability struct {
	resource string
	action   string
}

// Cashiers get a fixed read-plus-sales surface. Admins are handled in
// Allows without a table; they can do everything.
var cashierGrants = map[capability]bool{
	{ResourceMedicine, ActionRead}:        true,
	{ResourceMedicine, ActionAdjustStock}: true,
	{ResourceSupplier, ActionRead}:        true,
	{ResourceIntake, ActionRead}:          true,
	{ResourceSale, ActionRead}:            true,
	{ResourceSale, ActionCreate}:          true,
	{ResourceReport, ActionRead}:          true,
}

// Allows reports whether the role may perform action on resource. Unknown
// roles and unknown capabilities are denied.
func Allows(role string, resource string, action string) bool {
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleCashier:
		return cashierGrants[capability{resource, action}]
	}
	return false
}
