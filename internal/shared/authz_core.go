package shared

// Permission names checked by the RBAC middleware.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"
	PermAuditView = "audit.view"

	PermCashflowView = "cashflow.view"
	PermCashflowEdit = "cashflow.edit"

	PermSalesView = "sales.view"
	PermSalesEdit = "sales.edit"

	PermCandidatesView = "candidates.view"
	PermCandidatesEdit = "candidates.edit"

	PermTicketsView = "tickets.view"
	PermTicketsEdit = "tickets.edit"
)

// FinanceScopes lists the finance portal permissions.
func FinanceScopes() []string {
	return []string{PermCashflowView, PermCashflowEdit, PermSalesView, PermSalesEdit}
}

// HRScopes lists the HR portal permissions.
func HRScopes() []string {
	return []string{PermTicketsView, PermTicketsEdit}
}

// RecruitmentScopes lists the recruitment CRM permissions.
func RecruitmentScopes() []string {
	return []string{PermCandidatesView, PermCandidatesEdit}
}

// AllScopes lists every permission known to the application.
func AllScopes() []string {
	scopes := []string{PermUsersView, PermUsersEdit, PermAuditView}
	scopes = append(scopes, FinanceScopes()...)
	scopes = append(scopes, HRScopes()...)
	return append(scopes, RecruitmentScopes()...)
}
