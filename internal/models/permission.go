package models

// PermissionCode is one entry of the closed permission catalog.
type PermissionCode string

const (
	PermAdminAll           PermissionCode = "ADMIN_ALL"
	PermUserManage         PermissionCode = "USER_MANAGE"
	PermRoleManage         PermissionCode = "ROLE_MANAGE"
	PermFightRegister      PermissionCode = "FIGHT_REGISTER"
	PermFightCancelPrelock PermissionCode = "FIGHT_CANCEL_PRELOCK"
	PermFightControl       PermissionCode = "FIGHT_CONTROL"
	PermFightResultSet     PermissionCode = "FIGHT_RESULT_SET"
	PermFightOverride      PermissionCode = "FIGHT_OVERRIDE"
	PermBetEncode          PermissionCode = "BET_ENCODE"
	PermBetPayout          PermissionCode = "BET_PAYOUT"
	PermViewDashboard      PermissionCode = "VIEW_DASHBOARD"
	PermViewReports        PermissionCode = "VIEW_REPORTS"
	PermViewAuditLog       PermissionCode = "VIEW_AUDIT_LOG"
	PermCanteenPOS         PermissionCode = "CANTEEN_POS"
	PermCanteenViewPublic  PermissionCode = "CANTEEN_VIEW_PUBLIC"
	PermPublicDisplay      PermissionCode = "PUBLIC_DISPLAY"
)

type PermissionDef struct {
	Code        PermissionCode
	Description string
}

// PermissionCatalog is the fixed set seeded on every start, in display order.
var PermissionCatalog = []PermissionDef{
	{PermAdminAll, "Full system control"},
	{PermUserManage, "Manage users"},
	{PermRoleManage, "Manage roles and permissions"},
	{PermFightRegister, "Register matches and entries"},
	{PermFightCancelPrelock, "Cancel match or entry before lock"},
	{PermFightControl, "Start/stop matches"},
	{PermFightResultSet, "Set match results"},
	{PermFightOverride, "Override fight state/result (audited)"},
	{PermBetEncode, "Encode bets and print slips"},
	{PermBetPayout, "Payout / refund via QR"},
	{PermViewDashboard, "View monitoring dashboard"},
	{PermViewReports, "View reports"},
	{PermViewAuditLog, "View immutable logs"},
	{PermCanteenPOS, "Use canteen POS"},
	{PermCanteenViewPublic, "Show canteen public display"},
	{PermPublicDisplay, "Show public fight display mode"},
}

// Default role names
const (
	RoleAdmin      = "Admin"
	RoleCashier    = "Cashier"
	RoleRegistrar  = "Fight Registrar"
	RoleCanteen    = "Canteen"
	RoleSupervisor = "Supervisor / Auditor"
)

type RoleDef struct {
	Name        string
	Permissions []PermissionCode
}

var DefaultRoles = []RoleDef{
	{RoleAdmin, []PermissionCode{PermAdminAll}},
	{RoleCashier, []PermissionCode{PermBetEncode, PermBetPayout, PermViewDashboard}},
	{RoleRegistrar, []PermissionCode{PermFightRegister, PermFightCancelPrelock, PermViewDashboard}},
	{RoleCanteen, []PermissionCode{PermCanteenPOS, PermCanteenViewPublic, PermViewDashboard}},
	{RoleSupervisor, []PermissionCode{PermViewDashboard, PermViewReports, PermViewAuditLog}},
}

func (c PermissionCode) Valid() bool {
	for _, p := range PermissionCatalog {
		if p.Code == c {
			return true
		}
	}
	return false
}
