package boarddto

// ProtocolError reports a server payload that breaks the status contract,
// such as an unknown move tag.
type ProtocolError struct {
	Code    string
	Message string
}

func (e ProtocolError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "board protocol error"
}

const (
	CodeUnknownMoveTag = "unknown_move_tag"
	CodeMissingField   = "missing_field"
	CodeBadValue       = "bad_value"
	CodeStaleIndex     = "stale_index"
)
