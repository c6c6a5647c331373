package policy

import (
	"testing"

	"github.com/254Kioko/chemist-mgs/internal/domain"
)

func TestCapabilityMatrix(t *testing.T) {
	cases := []struct {
		role     string
		resource string
		action   string
		want     bool
	}{
		{domain.RoleAdmin, ResourceSupplier, ActionCreate, true},
		{domain.RoleAdmin, ResourceSettings, ActionUpdate, true},
		{domain.RoleAdmin, ResourceUser, ActionUpdate, true},
		{domain.RoleAdmin, ResourceMedicine, ActionDelete, true},

		{domain.RoleCashier, ResourceSale, ActionCreate, true},
		{domain.RoleCashier, ResourceSale, ActionRead, true},
		{domain.RoleCashier, ResourceMedicine, ActionRead, true},
		{domain.RoleCashier, ResourceMedicine, ActionAdjustStock, true},
		{domain.RoleCashier, ResourceSupplier, ActionRead, true},
		{domain.RoleCashier, ResourceIntake, ActionRead, true},
		{domain.RoleCashier, ResourceReport, ActionRead, true},

		{domain.RoleCashier, ResourceSupplier, ActionCreate, false},
		{domain.RoleCashier, ResourceSupplier, ActionDelete, false},
		{domain.RoleCashier, ResourceMedicine, ActionCreate, false},
		{domain.RoleCashier, ResourceMedicine, ActionUpdate, false},
		{domain.RoleCashier, ResourceMedicine, ActionDelete, false},
		{domain.RoleCashier, ResourceIntake, ActionCreate, false},
		{domain.RoleCashier, ResourceIntake, ActionSync, false},
		{domain.RoleCashier, ResourceSettings, ActionRead, false},
		{domain.RoleCashier, ResourceAudit, ActionRead, false},
		{domain.RoleCashier, ResourceUser, ActionCreate, false},

		{"", ResourceSale, ActionRead, false},
		{"intruder", ResourceSale, ActionCreate, false},
	}

	for _, tc := range cases {
		got := Allows(tc.role, tc.resource, tc.action)
		if got != tc.want {
			t.Errorf("Allows(%q, %q, %q) = %t, want %t", tc.role, tc.resource, tc.action, got, tc.want)
		}
	}
}
