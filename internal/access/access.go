// Package access holds the authorization rules for file records. Every
// function is pure: callers fetch the record and resolve the caller first.
package access

import "github.com/dharsanguruparan/FileVault/internal/model"

// Scope is the only filter a listing may run with.
type Scope struct {
	OwnerID  string
	ParentID string
}

// ListScope pins a listing to the caller's own files under parentID. An empty
// parentID means the root.
func ListScope(userID, parentID string) Scope {
	if parentID == "" {
		parentID = model.RootID
	}
	return Scope{OwnerID: userID, ParentID: parentID}
}

// CanReadMetadata allows owners only; public files do not expose metadata.
func CanReadMetadata(userID string, f *model.File) bool {
	return f != nil && userID != "" && f.OwnerID == userID
}

// CanReadContent allows anyone on public files and the owner otherwise. An
// empty userID stands for an anonymous caller.
func CanReadContent(userID string, f *model.File) bool {
	if f == nil {
		return false
	}
	if f.IsPublic {
		return true
	}
	return userID != "" && f.OwnerID == userID
}

// CanMutateVisibility allows owners only.
func CanMutateVisibility(userID string, f *model.File) bool {
	return CanReadMetadata(userID, f)
}
