package session

import (
	"context"
	"encoding/json"

	apperrors "github.com/louisbranch/creature-brewer/internal/platform/errors"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Localization keys for session notices and prompts.
const (
	KeyBlueprintSaved = "brewer.notifications.blueprint_saved"
	KeyActorSaved     = "brewer.notifications.actor_saved"
	KeyUnsavedTitle   = "brewer.ui.unsaved_title"
	KeyUnsavedText    = "brewer.ui.unsaved_text"
)

// Save writes the blueprint to the blueprint collection and returns its id.
// Only privileged users may save. The updated timestamp is kept only when
// the write succeeds.
func (s *Session) Save(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "Session.Save")
	defer span.End()

	var id string
	err := s.run(func() (EventKind, error) {
		if !s.privileged() {
			err := apperrors.New(apperrors.CodePermissionDenied, "save requires a privileged user")
			s.notifyError(err)
			return "", err
		}
		updated := blueprint.UpdateMeta(s.blueprint, s.cfg.SystemID, s.cfg.Now())
		savedID, err := s.cfg.Gateway.SaveBlueprint(ctx, updated, s.blueprintID)
		if err != nil {
			s.notifyError(err)
			return "", err
		}
		s.blueprint = updated
		s.blueprintID = savedID
		s.dirty = false
		id = savedID
		s.logger.Info("blueprint saved", zap.String("blueprint_id", savedID))
		s.notifyInfo(KeyBlueprintSaved)
		return EventSaved, nil
	})
	if err != nil {
		fail(span, err, "save failed")
		return "", err
	}
	span.SetAttributes(attribute.String("blueprint.id", id))
	return id, nil
}

// ExportActor projects the blueprint through the active adapter, embeds the
// attached items, and writes the actor to the creature collection. A later
// export updates the same actor. Attachments that no longer resolve or are
// not items are skipped.
func (s *Session) ExportActor(ctx context.Context) (string, error) {
	ctx, span := s.tracer.Start(ctx, "Session.ExportActor")
	defer span.End()

	var id string
	err := s.run(func() (EventKind, error) {
		a := s.cfg.Adapter
		if a == nil || !a.SupportsActorExport() {
			return "", apperrors.New(apperrors.CodeExportUnsupported, "active system cannot export actors")
		}
		span.SetAttributes(attribute.String("adapter.id", a.ID()))
		if !s.privileged() {
			err := apperrors.New(apperrors.CodePermissionDenied, "export requires a privileged user")
			s.notifyError(err)
			return "", err
		}
		actor, err := a.BlueprintToActorData(s.blueprint)
		if err != nil {
			s.notifyError(err)
			return "", err
		}
		if items := s.attachmentItems(ctx); len(items) > 0 {
			actor.Items = items
		}
		savedID, err := s.cfg.Gateway.SaveActor(ctx, actor, s.actorID)
		if err != nil {
			s.notifyError(err)
			return "", err
		}
		s.actorID = savedID
		s.dirty = false
		id = savedID
		s.logger.Info("actor exported", zap.String("actor_id", savedID), zap.Int("items", len(actor.Items)))
		s.notifyInfo(KeyActorSaved)
		return EventExported, nil
	})
	if err != nil {
		fail(span, err, "export failed")
		return "", err
	}
	span.SetAttributes(attribute.String("actor.id", id))
	return id, nil
}

func (s *Session) attachmentItems(ctx context.Context) []json.RawMessage {
	items := []json.RawMessage{}
	if s.cfg.Resolver == nil {
		return items
	}
	for _, attachment := range s.blueprint.Attachments {
		doc, err := s.cfg.Resolver.Resolve(ctx, attachment.Ref)
		if err != nil {
			s.logger.Warn("skipping unresolved attachment", zap.String("ref", attachment.Ref), zap.Error(err))
			continue
		}
		if doc.Kind != storage.KindItem {
			continue
		}
		items = append(items, doc.Data)
	}
	return items
}

// Close ends the session. With unsaved edits the user is asked first, and a
// negative answer keeps the session open. It reports whether the session is
// closed.
func (s *Session) Close(ctx context.Context) (bool, error) {
	closed := false
	err := s.run(func() (EventKind, error) {
		if s.dirty {
			if s.cfg.Confirmer == nil {
				return "", nil
			}
			ok, err := s.cfg.Confirmer.Confirm(ctx, Prompt{
				Title: s.localize(KeyUnsavedTitle),
				Text:  s.localize(KeyUnsavedText),
			})
			if err != nil || !ok {
				return "", err
			}
		}
		s.closed = true
		closed = true
		return EventClosed, nil
	})
	if apperrors.HasCode(err, apperrors.CodeSessionClosed) {
		return true, nil
	}
	return closed, err
}

func fail(span trace.Span, err error, description string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, description)
	span.SetAttributes(attribute.String("error.code", string(apperrors.CodeOf(err))))
}
