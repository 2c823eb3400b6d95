package models

// Collaborator roles
const (
	RoleEditor = "editor" // can edit tracks, restore versions
	RoleViewer = "viewer" // read-only access
)

// CanView reports whether the user may read the project: owner, any
// collaborator, or anyone if the project is public.
func CanView(p *Project, userID uint) bool {
	if p.IsPublic || p.OwnerID == userID {
		return true
	}
	for _, c := range p.Collaborators {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// CanEdit reports whether the user may mutate the project's content:
// the owner or a collaborator with the editor role.
func CanEdit(p *Project, userID uint) bool {
	if p.OwnerID == userID {
		return true
	}
	for _, c := range p.Collaborators {
		if c.UserID == userID && c.Role == RoleEditor {
			return true
		}
	}
	return false
}

// IsOwner reports whether the user owns the project.
func IsOwner(p *Project, userID uint) bool {
	return p.OwnerID == userID
}
