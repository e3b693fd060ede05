package rbac

import "github.com/backoffice/backoffice/internal/shared"

// Role names recognised by the portals.
const (
	RoleAdmin     = "admin"
	RoleFinance   = "finance"
	RoleHR        = "hr"
	RoleRecruiter = "recruiter"
	RoleViewer    = "viewer"
)

// Role describes a role and the permissions it grants.
type Role struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	SuperUser   bool     `json:"super_user"`
}

var catalog = []Role{
	{
		Name:        RoleAdmin,
		Description: "Full access to every portal",
		Permissions: shared.AllScopes(),
		SuperUser:   true,
	},
	{
		Name:        RoleFinance,
		Description: "Cash flow and sales ledgers",
		Permissions: shared.FinanceScopes(),
	},
	{
		Name:        RoleHR,
		Description: "HR helpdesk tickets",
		Permissions: shared.HRScopes(),
	},
	{
		Name:        RoleRecruiter,
		Description: "Recruitment pipeline",
		Permissions: shared.RecruitmentScopes(),
	},
	{
		Name:        RoleViewer,
		Description: "Read-only access",
		Permissions: []string{
			shared.PermCashflowView,
			shared.PermSalesView,
			shared.PermCandidatesView,
			shared.PermTicketsView,
		},
	},
}
