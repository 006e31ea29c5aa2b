package core

// Built-in roles.
const (
	Anonymous     = "Anonymous"
	Authenticated = "Authenticated"
	Manager       = "Manager"
	Member        = "Member"
	Owner         = "Owner"
	Reviewer      = "Reviewer"
)

// BuiltinRoles exist in every site.
var BuiltinRoles = []string{Anonymous, Authenticated, Manager, Member, Owner, Reviewer}

// Permissions used by the code. The site profile assigns these and many more to roles.
const (
	AddPortalContent    = "Add portal content"
	DeleteObjects       = "Delete objects"
	ListFolderContents  = "List folder contents"
	ManageBika          = "BIKA: Manage Bika"
	ManagePortal        = "Manage portal"
	ModifyPortalContent = "Modify portal content"
	View                = "View"
)
