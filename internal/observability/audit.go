package observability

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// AuditInput names the who/what/outcome of an administrative or auth action.
type AuditInput struct {
	EventName   string
	ActorUserID string
	TargetType  string
	TargetID    string
	Action      string
	Outcome     string
	Reason      string
}

func ActorUserID(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// EmitAudit writes a structured audit record through the default logger.
// Extra key/value pairs are appended verbatim.
func EmitAudit(r *http.Request, in AuditInput, extra ...any) {
	args := []any{
		"audit", true,
		"event", in.EventName,
		"actor_user_id", in.ActorUserID,
		"target_type", in.TargetType,
		"target_id", in.TargetID,
		"action", in.Action,
		"outcome", in.Outcome,
		"reason", in.Reason,
	}
	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
		if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
			args = append(args, "request_id", reqID)
		}
	}
	args = append(args, extra...)
	slog.Default().InfoContext(ctx, "audit_event", args...)
}
