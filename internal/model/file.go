// Package model contains the struct definitions shared across packages.
package model

import (
	"time"
)

// FileType classifies a stored entry. It never changes after creation.
type FileType string

const (
	TypeFolder FileType = "folder"
	TypeFile   FileType = "file"
	TypeImage  FileType = "image"
)

// RootID is the parentId of top-level entries.
const RootID = "0"

// File is the metadata record for a folder, file or image. Struct tags cover
// both the JSON API representation and the BSON document layout; StorageRef
// and CreatedAt never leave the server.
type File struct {
	ID       string   `json:"id" bson:"_id"`
	OwnerID  string   `json:"userId" bson:"userId"`
	Name     string   `json:"name" bson:"name"`
	Type     FileType `json:"type" bson:"type"`
	IsPublic bool     `json:"isPublic" bson:"isPublic"`
	ParentID string   `json:"parentId" bson:"parentId"`
	// StorageRef locates the blob; empty for folders.
	StorageRef string    `json:"-" bson:"storageRef,omitempty"`
	CreatedAt  time.Time `json:"-" bson:"createdAt"`
}

// IsFolder reports whether f is a folder.
func (f *File) IsFolder() bool {
	return f.Type == TypeFolder
}
