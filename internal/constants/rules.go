package constants

import (
	"strconv"

	"github.com/kerimovok/go-pkg-utils/config"
	"github.com/kerimovok/go-pkg-utils/validator"
)

var EnvValidationRules = []validator.ValidationRule{
	// Server validation
	{
		Variable: "PORT",
		Default:  "3003",
		Rule:     config.IsValidPort,
		Message:  "server port is required and must be a valid port number",
	},
	{
		Variable: "GO_ENV",
		Default:  "development",
		Rule:     func(v string) bool { return v == "development" || v == "production" },
		Message:  "GO_ENV must be either 'development' or 'production'",
	},

	// Auth validation
	{
		Variable: "API_KEY",
		Rule:     func(v string) bool { return v != "" },
		Message:  "API key is required",
	},

	// Storage validation
	{
		Variable: "UPLOAD_DIR",
		Default:  "uploads",
		Rule:     func(v string) bool { return v != "" },
		Message:  "upload directory is required",
	},
	{
		Variable: "MAX_FILE_SIZE_MB",
		Default:  "10",
		Rule: func(v string) bool {
			n, err := strconv.Atoi(v)
			return err == nil && n > 0
		},
		Message: "max file size must be a positive number of megabytes",
	},

	// Database validation
	{
		Variable: "DB_HOST",
		Rule:     func(v string) bool { return v != "" },
		Message:  "database host is required",
	},
	{
		Variable: "DB_PORT",
		Default:  "5432",
		Rule:     config.IsValidPort,
		Message:  "database port is required and must be a valid port number",
	},
	{
		Variable: "DB_USER",
		Rule:     func(v string) bool { return v != "" },
		Message:  "database user is required",
	},
	{
		Variable: "DB_NAME",
		Default:  "storage",
		Rule:     func(v string) bool { return v != "" },
		Message:  "database name is required",
	},
}
