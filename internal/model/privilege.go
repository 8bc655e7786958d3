package model

// AccountKind identifies who is behind a token
type AccountKind string

const (
	AccountFarming   AccountKind = AccountKind(KindFarming)
	AccountExporting AccountKind = AccountKind(KindExporting)
	AccountOperator  AccountKind = "operator"
)

// Privilege codes checked by middleware.RequirePrivilege
const (
	PrivProductView      = "product:view"
	PrivProductCreate    = "product:create"
	PrivProductUpdate    = "product:update"
	PrivProductDelete    = "product:delete"
	PrivRequestCreate    = "request:create"
	PrivRequestReview    = "request:review"
	PrivPackageCreate    = "package:create"
	PrivPackageView      = "package:view"
	PrivPackageViewAll   = "package:view_all"
	PrivPackageRegenerQR = "package:regenerate_qr"
	PrivDashboardView    = "dashboard:view"
)

var farmingPrivileges = []string{
	PrivProductView,
	PrivProductCreate,
	PrivProductUpdate,
	PrivProductDelete,
	PrivRequestReview,
	PrivPackageView,
	PrivDashboardView,
}

var exportingPrivileges = []string{
	PrivProductView,
	PrivRequestCreate,
	PrivPackageCreate,
	PrivPackageView,
	PrivDashboardView,
}

var operatorPrivileges = []string{
	PrivProductView,
	PrivPackageView,
	PrivPackageViewAll,
	PrivPackageRegenerQR,
}

// PrivilegesFor returns the privilege codes granted to an account kind.
// Unknown kinds get none.
func PrivilegesFor(kind AccountKind) []string {
	var src []string
	switch kind {
	case AccountFarming:
		src = farmingPrivileges
	case AccountExporting:
		src = exportingPrivileges
	case AccountOperator:
		src = operatorPrivileges
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
