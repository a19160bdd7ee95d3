package models

import "time"

// Attachment is file metadata for a task. The bytes live in external
// object storage under storage_path; only the reference is kept here.
type Attachment struct {
	ID          string    `json:"id" db:"id"`
	TaskID      string    `json:"task_id" db:"task_id"`
	UploadedBy  *string   `json:"uploaded_by,omitempty" db:"uploaded_by"`
	FileName    string    `json:"file_name" db:"file_name"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	FileType    string    `json:"file_type,omitempty" db:"file_type"`
	StoragePath string    `json:"storage_path" db:"storage_path"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
