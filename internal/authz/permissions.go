// Package authz decides whether a caller's roles permit a requested tool and
// derives tenant-scoped data access filters for customer-realm callers.
package authz

// Role names used in the permission table. Internal-realm roles come from
// the staff realm; contact roles come from the customer realm.
const (
	RoleDefault      = "default"
	RoleHRRead       = "hr-read"
	RoleHRWrite      = "hr-write"
	RoleManager      = "manager"
	RoleFinance      = "finance"
	RolePayrollAdmin = "payroll-admin"
	RoleSupport      = "support"
	RoleExecutive    = "executive"
	RoleContactBasic = "contact-basic"
	RoleContactLead  = "contact-lead"
)

// ToolPermission is one role's entry for one tool. An absent entry means
// implicitly denied for that role.
type ToolPermission struct {
	Allowed bool
	// RequiresHierarchyCheck signals the domain handler must additionally
	// verify the target record's owner is within the caller's management
	// chain before executing. Omitting that downstream check is a security
	// bug; the flag itself is load-bearing.
	RequiresHierarchyCheck bool
}

// permissions is the static role -> tool -> permission table.
// Evaluation is data plus first-match; no inheritance.
//
// get_all_salaries and bulk_export are present as explicit denials in every
// table that mentions them and allowed in none: no role may bulk-move PII
// through the assistant.
var permissions = map[string]map[string]ToolPermission{
	RoleDefault: {
		"get_my_profile":          {Allowed: true},
		"get_my_vacation_balance": {Allowed: true},
		"get_company_holidays":    {Allowed: true},
		"get_all_salaries":        {Allowed: false},
		"bulk_export":             {Allowed: false},
	},
	RoleHRRead: {
		"get_employee":         {Allowed: true},
		"list_team_members":    {Allowed: true},
		"get_vacation_balance": {Allowed: true},
		"get_all_salaries":     {Allowed: false},
		"bulk_export":          {Allowed: false},
	},
	RoleHRWrite: {
		"get_employee":         {Allowed: true},
		"list_team_members":    {Allowed: true},
		"get_vacation_balance": {Allowed: true},
		"update_employee":      {Allowed: true},
		"create_employee":      {Allowed: true},
		"approve_leave":        {Allowed: true},
		"get_all_salaries":     {Allowed: false},
		"bulk_export":          {Allowed: false},
	},
	RoleManager: {
		"get_report_details":    {Allowed: true, RequiresHierarchyCheck: true},
		"get_team_compensation": {Allowed: true, RequiresHierarchyCheck: true},
		"approve_leave":         {Allowed: true, RequiresHierarchyCheck: true},
		"get_all_salaries":      {Allowed: false},
		"bulk_export":           {Allowed: false},
	},
	RoleFinance: {
		"get_invoice":        {Allowed: true},
		"get_revenue_report": {Allowed: true},
		"get_tax_filing":     {Allowed: true},
		"create_invoice":     {Allowed: true},
		"get_all_salaries":   {Allowed: false},
		"bulk_export":        {Allowed: false},
	},
	RolePayrollAdmin: {
		"get_pay_run":      {Allowed: true},
		"create_pay_run":   {Allowed: true},
		"adjust_pay_item":  {Allowed: true},
		"get_all_salaries": {Allowed: false},
		"bulk_export":      {Allowed: false},
	},
	RoleSupport: {
		"get_ticket":       {Allowed: true},
		"update_ticket":    {Allowed: true},
		"close_ticket":     {Allowed: true},
		"get_all_salaries": {Allowed: false},
		"bulk_export":      {Allowed: false},
	},
	RoleExecutive: {
		"get_revenue_report":   {Allowed: true},
		"get_headcount_report": {Allowed: true},
		"get_ticket":           {Allowed: true},
		"get_all_salaries":     {Allowed: false},
		"bulk_export":          {Allowed: false},
	},
	RoleContactBasic: {
		"get_ticket":       {Allowed: true},
		"create_ticket":    {Allowed: true},
		"get_all_salaries": {Allowed: false},
		"bulk_export":      {Allowed: false},
	},
	RoleContactLead: {
		"get_ticket":       {Allowed: true},
		"create_ticket":    {Allowed: true},
		"update_ticket":    {Allowed: true},
		"get_all_salaries": {Allowed: false},
		"bulk_export":      {Allowed: false},
	},
}

// KnownRoles returns the role names present in the permission table.
func KnownRoles() []string {
	roles := make([]string, 0, len(permissions))
	for role := range permissions {
		roles = append(roles, role)
	}
	return roles
}
