package requests

// UploadRequest holds the query options of a plain upload.
type UploadRequest struct {
	Optimize bool `query:"optimize"`
}

// WebUploadRequest holds the explicit parameters of a forced
// web-optimization upload. Zero values fall back to the configured preset.
type WebUploadRequest struct {
	Quality       int  `query:"quality" validate:"omitempty,min=1,max=100"`
	MaxWidth      int  `query:"max_width" validate:"omitempty,min=1"`
	MaxHeight     int  `query:"max_height" validate:"omitempty,min=1"`
	PreserveAlpha bool `query:"preserve_alpha"`
}

// ListFilesRequest holds pagination and filtering options for listing.
type ListFilesRequest struct {
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PerPage  int    `query:"per_page" validate:"omitempty,min=1,max=100"`
	FileType string `query:"file_type" validate:"omitempty,oneof=image video document audio other"`
}
