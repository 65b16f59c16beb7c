// Package errors provides structured error handling with i18n support.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Session errors
	CodePermissionDenied  Code = "PERMISSION_DENIED"
	CodeExportUnsupported Code = "EXPORT_UNSUPPORTED"
	CodeInvalidField      Code = "INVALID_FIELD"
	CodeSessionClosed     Code = "SESSION_CLOSED"

	// Storage errors
	CodeMissingBlueprintCollection Code = "MISSING_BLUEPRINT_COLLECTION"
	CodeMissingCreatureCollection  Code = "MISSING_CREATURE_COLLECTION"
	CodeBlueprintNotEmbedded       Code = "BLUEPRINT_NOT_EMBEDDED"
	CodeNotFound                   Code = "NOT_FOUND"
)

// MessageKey returns the localization key of the user-facing notice for c.
func (c Code) MessageKey() string {
	switch c {
	case CodePermissionDenied:
		return "brewer.errors.gm_only"
	case CodeExportUnsupported:
		return "brewer.errors.export_unsupported"
	case CodeInvalidField:
		return "brewer.errors.invalid_field"
	case CodeSessionClosed:
		return "brewer.errors.session_closed"
	case CodeMissingBlueprintCollection:
		return "brewer.errors.missing_blueprint_pack"
	case CodeMissingCreatureCollection:
		return "brewer.errors.missing_creature_pack"
	case CodeBlueprintNotEmbedded:
		return "brewer.errors.blueprint_not_embedded"
	case CodeNotFound:
		return "brewer.errors.not_found"
	default:
		return "brewer.errors.unexpected"
	}
}
