package instrumentation

import "slices"

// Label values must come from small fixed sets or the metrics backend pays
// for every distinct value. BoundedLabel folds anything outside allowed into
// "other".
func BoundedLabel(value string, allowed ...string) string {
	if value == "" {
		return StatusUnknown
	}
	if slices.Contains(allowed, value) {
		return value
	}
	return "other"
}

// Calendar operations used as the action label of calendar_actions_total.
const (
	OperationCreate  = "create"
	OperationUpdate  = "update"
	OperationDelete  = "delete"
	OperationReorder = "reorder"
	OperationSplit   = "split"
	OperationUndo    = "undo"
	OperationRestore = "restore"
	OperationInvalid = "invalid"
)

// CalendarOperations lists every valid action label.
var CalendarOperations = []string{
	OperationCreate,
	OperationUpdate,
	OperationDelete,
	OperationReorder,
	OperationSplit,
	OperationUndo,
	OperationRestore,
	OperationInvalid,
}
